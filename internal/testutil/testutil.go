package testutil

import (
	"sync"

	"uranai/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestProfile creates a test profile
func NewTestProfile(id int, nickname string) domain.Profile {
	return domain.Profile{
		ID:            id,
		Nickname:      nickname,
		NameHiragana:  "てすと",
		Gender:        domain.GenderUnknown,
		BirthDate:     "1990-01-01",
		BirthTime:     "12:00",
		BirthLocation: &domain.Place{Place: "東京都中央区"},
	}
}

// NewTestPayload creates a divination payload of type t
func NewTestPayload(t domain.FortuneType, purpose domain.Purpose, text string) *domain.DivinationPayload {
	return &domain.DivinationPayload{
		FortuneType: t,
		Purpose:     purpose,
		AIAnalysis:  []byte(`"` + text + `"`),
	}
}

// ErrorRecorder collects reported errors
type ErrorRecorder struct {
	mu     sync.Mutex
	errors []error
}

// Report records err
func (r *ErrorRecorder) Report(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// Errors returns the recorded errors
func (r *ErrorRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}
