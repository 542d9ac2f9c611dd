package flow

import (
	"errors"

	"uranai/internal/domain"
	"uranai/internal/entitlement"
	"uranai/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrInvalidTransition is returned for any action the current screen does not accept
	ErrInvalidTransition = errors.New("invalid screen transition")
	// ErrUnknownProfile is returned when toggling an id that is not in the loaded profile list
	ErrUnknownProfile = errors.New("unknown profile")
)

// transitions lists every screen change a user action may cause
var transitions = map[domain.Screen][]domain.Screen{
	domain.ScreenSplash:       {domain.ScreenHome},
	domain.ScreenHome:         {domain.ScreenPersonSelect, domain.ScreenMyPage},
	domain.ScreenPersonSelect: {domain.ScreenFortuneType, domain.ScreenHome},
	domain.ScreenFortuneType:  {domain.ScreenInput, domain.ScreenPersonSelect},
	domain.ScreenInput: {
		domain.ScreenTarotTouch,
		domain.ScreenNumerologyLoading,
		domain.ScreenHoroscopeLoading,
		domain.ScreenComprehensiveLoading,
	},
	domain.ScreenTarotTouch:           {domain.ScreenTarotLoading},
	domain.ScreenNumerologyLoading:    {domain.ScreenResult},
	domain.ScreenHoroscopeLoading:     {domain.ScreenResult},
	domain.ScreenTarotLoading:         {domain.ScreenResult},
	domain.ScreenComprehensiveLoading: {domain.ScreenResult},
	domain.ScreenResult:               {domain.ScreenHome},
	domain.ScreenMyPage:               {domain.ScreenHome},
}

// resumable screens may be restored from persisted state once the splash resolves
var resumable = map[domain.Screen]bool{
	domain.ScreenHome:         true,
	domain.ScreenPersonSelect: true,
	domain.ScreenFortuneType:  true,
	domain.ScreenInput:        true,
	domain.ScreenMyPage:       true,
}

// CanTransition reports whether a user action may move from one screen to another
func CanTransition(from, to domain.Screen) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine validates and executes screen transitions against the store
type Machine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewMachine creates a state machine over st
func NewMachine(st *store.Store, logger *zap.Logger) *Machine {
	return &Machine{store: st, logger: logger}
}

// apply runs fn when the current screen is from. fn returns the target screen
// or an error; the change commits only when the edge is in the table.
func (m *Machine) apply(from domain.Screen, fn func(s *domain.AppState) (domain.Screen, error)) error {
	var err error
	m.store.Transact(func(s *domain.AppState) bool {
		if s.Screen != from {
			err = ErrInvalidTransition
			return false
		}
		var to domain.Screen
		to, err = fn(s)
		if err != nil {
			return false
		}
		if to != from && !CanTransition(from, to) {
			err = ErrInvalidTransition
			return false
		}
		s.Screen = to
		return true
	})
	if err != nil {
		m.logger.Debug("Transition rejected", zap.String("screen", string(from)), zap.Error(err))
	}
	return err
}

// ChoosePurpose starts the wizard from home
func (m *Machine) ChoosePurpose(p domain.Purpose) error {
	return m.apply(domain.ScreenHome, func(s *domain.AppState) (domain.Screen, error) {
		if !p.Valid() {
			return "", ErrInvalidTransition
		}
		s.Selection = domain.Selection{Purpose: p}
		return domain.ScreenPersonSelect, nil
	})
}

// ToggleProfile adds or removes id from the selection. When the purpose's cap is
// reached a new id is ignored, except with a cap of one where it replaces the
// current choice.
func (m *Machine) ToggleProfile(id int) error {
	return m.apply(domain.ScreenPersonSelect, func(s *domain.AppState) (domain.Screen, error) {
		if _, ok := domain.FindProfile(s.Profiles, id); !ok {
			return "", ErrUnknownProfile
		}
		s.Selection.ProfileIDs = toggle(s.Selection.ProfileIDs, id, s.Selection.Purpose.SelectionCap())
		return domain.ScreenPersonSelect, nil
	})
}

func toggle(ids []int, id, limit int) []int {
	for i, selected := range ids {
		if selected == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	switch {
	case len(ids) < limit:
		return append(ids, id)
	case limit == 1:
		return []int{id}
	}
	return ids
}

// ConfirmSelection proceeds once exactly the required number of profiles is selected
func (m *Machine) ConfirmSelection() error {
	return m.apply(domain.ScreenPersonSelect, func(s *domain.AppState) (domain.Screen, error) {
		limit := s.Selection.Purpose.SelectionCap()
		if limit == 0 || len(s.Selection.ProfileIDs) != limit {
			return "", ErrInvalidTransition
		}
		return domain.ScreenFortuneType, nil
	})
}

// Back handles the back button of person-select, fortune-type and result
func (m *Machine) Back() error {
	switch m.store.Get().Screen {
	case domain.ScreenPersonSelect:
		return m.apply(domain.ScreenPersonSelect, func(s *domain.AppState) (domain.Screen, error) {
			s.Selection = domain.Selection{}
			return domain.ScreenHome, nil
		})
	case domain.ScreenFortuneType:
		return m.apply(domain.ScreenFortuneType, func(s *domain.AppState) (domain.Screen, error) {
			s.Selection.FortuneType = domain.FortuneNone
			return domain.ScreenPersonSelect, nil
		})
	case domain.ScreenResult:
		return m.apply(domain.ScreenResult, func(s *domain.AppState) (domain.Screen, error) {
			s.Selection = domain.Selection{}
			return domain.ScreenHome, nil
		})
	}
	return ErrInvalidTransition
}

// SelectFortuneType picks the divination method. Premium-only types are denied
// with an EntitlementDenied error for free users.
func (m *Machine) SelectFortuneType(t domain.FortuneType) error {
	return m.apply(domain.ScreenFortuneType, func(s *domain.AppState) (domain.Screen, error) {
		if !t.Valid() {
			return "", ErrInvalidTransition
		}
		if err := entitlement.CanUseFortuneType(t, s.Entitlement.IsPremium).Err(); err != nil {
			return "", err
		}
		s.Selection.FortuneType = t
		return domain.ScreenInput, nil
	})
}

// SetConsultation stores the free-text question typed on the input screen
func (m *Machine) SetConsultation(text string) error {
	return m.apply(domain.ScreenInput, func(s *domain.AppState) (domain.Screen, error) {
		s.Selection.ConsultationText = text
		return domain.ScreenInput, nil
	})
}

// Submit leaves the input screen for the tarot card or the type's loading screen
func (m *Machine) Submit() error {
	return m.apply(domain.ScreenInput, func(s *domain.AppState) (domain.Screen, error) {
		if _, ok := domain.NewFetchKey(s.Selection); !ok {
			return "", ErrInvalidTransition
		}
		if s.Selection.FortuneType == domain.FortuneTarot {
			return domain.ScreenTarotTouch, nil
		}
		return s.Selection.FortuneType.LoadingScreen(), nil
	})
}

// TouchCard draws the tarot card. Repeated touches after the first are rejected.
func (m *Machine) TouchCard() error {
	return m.apply(domain.ScreenTarotTouch, func(s *domain.AppState) (domain.Screen, error) {
		return domain.ScreenTarotLoading, nil
	})
}

// CompleteLoading shows the result when loading is still the current screen
func (m *Machine) CompleteLoading(loading domain.Screen) error {
	if !loading.IsLoading() {
		return ErrInvalidTransition
	}
	return m.apply(loading, func(s *domain.AppState) (domain.Screen, error) {
		return domain.ScreenResult, nil
	})
}

// Navigate follows the navigation bar between home, mypage and result
func (m *Machine) Navigate(to domain.Screen) error {
	from := m.store.Get().Screen
	switch {
	case from == domain.ScreenHome && to == domain.ScreenMyPage:
		return m.apply(from, func(s *domain.AppState) (domain.Screen, error) {
			return domain.ScreenMyPage, nil
		})
	case from == domain.ScreenMyPage && to == domain.ScreenHome:
		return m.apply(from, func(s *domain.AppState) (domain.Screen, error) {
			s.Selection = domain.Selection{}
			return domain.ScreenHome, nil
		})
	case from == domain.ScreenResult && to == domain.ScreenHome:
		return m.Back()
	}
	return ErrInvalidTransition
}

// ResolveSplash leaves the splash screen once the auth check has completed with
// a session. It lands on the rehydrated screen when that screen's guards still
// hold, otherwise on home.
func (m *Machine) ResolveSplash() bool {
	return m.store.Transact(func(s *domain.AppState) bool {
		if s.Screen != domain.ScreenSplash || !s.AuthChecked || !s.Session.Present {
			return false
		}
		landing := resumeTarget(s)
		if landing == domain.ScreenHome {
			s.Selection = domain.Selection{}
		}
		s.Screen = landing
		s.ResumeScreen = ""
		return true
	})
}

func resumeTarget(s *domain.AppState) domain.Screen {
	target := s.ResumeScreen
	if !resumable[target] {
		return domain.ScreenHome
	}
	sel := s.Selection
	for _, id := range sel.ProfileIDs {
		if _, ok := domain.FindProfile(s.Profiles, id); !ok {
			return domain.ScreenHome
		}
	}
	complete := sel.Purpose.Valid() && len(sel.ProfileIDs) == sel.Purpose.SelectionCap()

	switch target {
	case domain.ScreenPersonSelect:
		if !sel.Purpose.Valid() {
			return domain.ScreenHome
		}
	case domain.ScreenFortuneType:
		if !complete {
			return domain.ScreenHome
		}
	case domain.ScreenInput:
		if !complete || !sel.FortuneType.Valid() {
			return domain.ScreenHome
		}
		if !entitlementAllows(sel.FortuneType, s.Entitlement.IsPremium) {
			return domain.ScreenHome
		}
	}
	return target
}

func entitlementAllows(t domain.FortuneType, isPremium bool) bool {
	return entitlement.CanUseFortuneType(t, isPremium).Allowed
}

// Redirect forces a screen change outside the user-action table. Going home
// clears the selection and the result; going to splash also closes any modal.
func (m *Machine) Redirect(to domain.Screen) {
	m.store.Set(func(s *domain.AppState) {
		switch to {
		case domain.ScreenHome:
			s.Selection = domain.Selection{}
			s.Result = domain.IdleResult()
		case domain.ScreenSplash:
			s.Selection = domain.Selection{}
			s.Result = domain.IdleResult()
			s.Modal = domain.ModalState{}
			s.ResumeScreen = ""
		}
		s.Screen = to
	})
	m.logger.Info("Screen redirected", zap.String("screen", string(to)))
}
