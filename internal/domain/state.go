package domain

// Selection is what the user picked while walking through the wizard
type Selection struct {
	Purpose          Purpose
	FortuneType      FortuneType
	ProfileIDs       []int
	ConsultationText string
}

// Contains reports whether id is selected
func (s Selection) Contains(id int) bool {
	for _, selected := range s.ProfileIDs {
		if selected == id {
			return true
		}
	}
	return false
}

// AppState is the full controller state.
// Profiles, modal payloads and result payloads are never mutated in place once stored.
type AppState struct {
	AuthChecked bool
	Session     Session
	IsLoggedIn  bool
	Entitlement Entitlement

	Screen       Screen
	ResumeScreen Screen

	Profiles       []Profile
	ProfilesLoaded bool
	Selection      Selection

	Modal  ModalState
	Result DivinationResult
	Error  string
}

// NewAppState returns the state of a fresh process start
func NewAppState() AppState {
	return AppState{
		Screen:      ScreenSplash,
		Entitlement: Entitlement{TicketBalance: DefaultTicketBalance},
		Result:      IdleResult(),
	}
}

// Clone copies the slices so the snapshot can be handed out safely
func (s AppState) Clone() AppState {
	c := s
	if s.Profiles != nil {
		c.Profiles = append([]Profile(nil), s.Profiles...)
	}
	if s.Selection.ProfileIDs != nil {
		c.Selection.ProfileIDs = append([]int(nil), s.Selection.ProfileIDs...)
	}
	if s.Result.Key.ProfileIDs != nil {
		c.Result.Key.ProfileIDs = append([]int(nil), s.Result.Key.ProfileIDs...)
	}
	return c
}

// PersistedState is the durable subset of AppState. The auth-check flag and the
// session are excluded so each start re-derives them.
type PersistedState struct {
	IsLoggedIn         bool        `json:"isLoggedIn"`
	IsPremium          bool        `json:"isPremium"`
	CurrentScreen      Screen      `json:"currentScreen"`
	TicketBalance      int         `json:"ticketBalance"`
	Profiles           []Profile   `json:"profiles"`
	FortunePurpose     Purpose     `json:"fortunePurpose,omitempty"`
	FortuneType        FortuneType `json:"fortuneType,omitempty"`
	SelectedProfileIDs []int       `json:"selectedProfileIds"`
	ConsultationText   string      `json:"consultationText"`
}

// Persisted extracts the durable subset
func (s AppState) Persisted() PersistedState {
	c := s.Clone()
	return PersistedState{
		IsLoggedIn:         c.IsLoggedIn,
		IsPremium:          c.Entitlement.IsPremium,
		CurrentScreen:      c.Screen,
		TicketBalance:      c.Entitlement.TicketBalance,
		Profiles:           c.Profiles,
		FortunePurpose:     c.Selection.Purpose,
		FortuneType:        c.Selection.FortuneType,
		SelectedProfileIDs: c.Selection.ProfileIDs,
		ConsultationText:   c.Selection.ConsultationText,
	}
}
