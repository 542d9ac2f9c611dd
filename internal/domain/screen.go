package domain

// Screen identifies the single visible wizard screen
type Screen string

const (
	ScreenSplash               Screen = "splash"
	ScreenHome                 Screen = "home"
	ScreenPersonSelect         Screen = "person-select"
	ScreenFortuneType          Screen = "fortune-type"
	ScreenInput                Screen = "input"
	ScreenTarotTouch           Screen = "tarot-touch"
	ScreenNumerologyLoading    Screen = "numerology-loading"
	ScreenHoroscopeLoading     Screen = "horoscope-loading"
	ScreenTarotLoading         Screen = "tarot-loading"
	ScreenComprehensiveLoading Screen = "comprehensive-loading"
	ScreenResult               Screen = "result"
	ScreenMyPage               Screen = "mypage"
)

// Screens lists every screen of the closed enumeration
var Screens = []Screen{
	ScreenSplash,
	ScreenHome,
	ScreenPersonSelect,
	ScreenFortuneType,
	ScreenInput,
	ScreenTarotTouch,
	ScreenNumerologyLoading,
	ScreenHoroscopeLoading,
	ScreenTarotLoading,
	ScreenComprehensiveLoading,
	ScreenResult,
	ScreenMyPage,
}

// Valid reports whether s belongs to the enumeration
func (s Screen) Valid() bool {
	for _, known := range Screens {
		if s == known {
			return true
		}
	}
	return false
}

// IsLoading reports whether s is one of the per-type loading screens
func (s Screen) IsLoading() bool {
	switch s {
	case ScreenNumerologyLoading, ScreenHoroscopeLoading, ScreenTarotLoading, ScreenComprehensiveLoading:
		return true
	}
	return false
}

// Purpose is the divination purpose chosen on the home screen.
// The zero value means no purpose selected.
type Purpose string

const (
	PurposeNone          Purpose = ""
	PurposePersonal      Purpose = "personal"
	PurposeCompatibility Purpose = "compatibility"
)

// Valid reports whether p is a selectable purpose
func (p Purpose) Valid() bool {
	return p == PurposePersonal || p == PurposeCompatibility
}

// SelectionCap returns how many profiles may be selected for p
func (p Purpose) SelectionCap() int {
	switch p {
	case PurposePersonal:
		return 1
	case PurposeCompatibility:
		return 2
	}
	return 0
}

// FortuneType is the divination method. The zero value means none selected.
type FortuneType string

const (
	FortuneNone          FortuneType = ""
	FortuneNumerology    FortuneType = "numerology"
	FortuneHoroscope     FortuneType = "horoscope"
	FortuneTarot         FortuneType = "tarot"
	FortuneComprehensive FortuneType = "comprehensive"
)

// Valid reports whether t is a selectable fortune type
func (t FortuneType) Valid() bool {
	switch t {
	case FortuneNumerology, FortuneHoroscope, FortuneTarot, FortuneComprehensive:
		return true
	}
	return false
}

// PremiumOnly reports whether t requires a premium plan
func (t FortuneType) PremiumOnly() bool {
	return t == FortuneComprehensive
}

// LoadingScreen returns the loading screen shown while t is being divined
func (t FortuneType) LoadingScreen() Screen {
	switch t {
	case FortuneNumerology:
		return ScreenNumerologyLoading
	case FortuneHoroscope:
		return ScreenHoroscopeLoading
	case FortuneTarot:
		return ScreenTarotLoading
	case FortuneComprehensive:
		return ScreenComprehensiveLoading
	}
	return ""
}
