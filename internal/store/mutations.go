package store

import "uranai/internal/domain"

// WithScreen moves to screen
func WithScreen(screen domain.Screen) Mutation {
	return func(s *domain.AppState) {
		s.Screen = screen
	}
}

// WithModal replaces the modal slot
func WithModal(kind domain.ModalKind, payload *domain.ModalPayload) Mutation {
	return func(s *domain.AppState) {
		s.Modal = domain.ModalState{Kind: kind, Payload: payload}
	}
}

// WithProfiles replaces the profile list and marks it loaded
func WithProfiles(profiles []domain.Profile) Mutation {
	return func(s *domain.AppState) {
		s.Profiles = append([]domain.Profile(nil), profiles...)
		s.ProfilesLoaded = true
	}
}

// WithEntitlement replaces premium status and ticket balance
func WithEntitlement(e domain.Entitlement) Mutation {
	return func(s *domain.AppState) {
		s.Entitlement = e
	}
}

// WithError fills the shared error slot
func WithError(message string) Mutation {
	return func(s *domain.AppState) {
		s.Error = message
	}
}

// ClearSelection resets purpose, fortune type, selected profiles and consultation
func ClearSelection() Mutation {
	return func(s *domain.AppState) {
		s.Selection = domain.Selection{}
	}
}

// ResetResult returns the result slot to idle
func ResetResult() Mutation {
	return func(s *domain.AppState) {
		s.Result = domain.IdleResult()
	}
}

// Rehydrate copies a persisted record into the state. The session and the
// auth-check flag are left untouched. A non-empty persisted profile list counts
// as loaded.
func Rehydrate(p domain.PersistedState) Mutation {
	return func(s *domain.AppState) {
		s.IsLoggedIn = p.IsLoggedIn
		s.Entitlement = domain.Entitlement{IsPremium: p.IsPremium, TicketBalance: p.TicketBalance}
		if s.Entitlement.TicketBalance < 0 {
			s.Entitlement.TicketBalance = 0
		}
		if p.CurrentScreen.Valid() {
			s.ResumeScreen = p.CurrentScreen
		}
		s.Profiles = append([]domain.Profile(nil), p.Profiles...)
		// A persisted list is usable until a live load replaces it
		s.ProfilesLoaded = len(s.Profiles) > 0
		s.Selection = domain.Selection{
			Purpose:          p.FortunePurpose,
			FortuneType:      p.FortuneType,
			ProfileIDs:       append([]int(nil), p.SelectedProfileIDs...),
			ConsultationText: p.ConsultationText,
		}
		if !s.Selection.Purpose.Valid() {
			s.Selection.Purpose = domain.PurposeNone
			s.Selection.ProfileIDs = nil
		}
		if !s.Selection.FortuneType.Valid() {
			s.Selection.FortuneType = domain.FortuneNone
		}
		if limit := s.Selection.Purpose.SelectionCap(); len(s.Selection.ProfileIDs) > limit {
			s.Selection.ProfileIDs = s.Selection.ProfileIDs[:limit]
		}
	}
}
