package testutil

import (
	"context"
	"sync"
	"time"

	"uranai/internal/domain"
)

// FakeDivinationAPI counts divination requests. When Gate is set, each call
// waits for a value on it before answering.
type FakeDivinationAPI struct {
	Gate    chan struct{}
	Err     error
	Respond func(req domain.DivinationRequest) (*domain.DivinationPayload, error)

	mu       sync.Mutex
	requests []domain.DivinationRequest
}

func (f *FakeDivinationAPI) CreateDivinationResult(ctx context.Context, req domain.DivinationRequest) (*domain.DivinationPayload, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Respond != nil {
		return f.Respond(req)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return NewTestPayload(req.FortuneType, req.RequestData.Purpose, "結果"), nil
}

// Calls returns how many requests were made
func (f *FakeDivinationAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns the requests made so far
func (f *FakeDivinationAPI) Requests() []domain.DivinationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DivinationRequest(nil), f.requests...)
}

// FakeAuthProvider is an in-memory auth provider with controllable latency
type FakeAuthProvider struct {
	GetSessionDelay time.Duration
	GetSessionErr   error
	SignInErr       error
	SignUpErr       error

	mu       sync.Mutex
	session  *domain.AuthSession
	subs     map[int]chan domain.SessionEvent
	nextSub  int
	restored []domain.AuthSession
	signUps  []string
	probes   int
}

// NewFakeAuthProvider creates a provider without a session
func NewFakeAuthProvider() *FakeAuthProvider {
	return &FakeAuthProvider{subs: make(map[int]chan domain.SessionEvent)}
}

// NewTestSession creates a session valid for an hour
func NewTestSession(userID string) domain.AuthSession {
	return domain.AuthSession{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       userID,
		Email:        userID + "@example.com",
	}
}

func (f *FakeAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	s := NewTestSession(email)
	f.SetSession(&s)
	f.Emit(domain.EventSignedIn, &s)
	return &s, nil
}

func (f *FakeAuthProvider) SignUp(ctx context.Context, email, password, redirectTo string) error {
	if f.SignUpErr != nil {
		return f.SignUpErr
	}
	f.mu.Lock()
	f.signUps = append(f.signUps, email)
	f.mu.Unlock()
	return nil
}

func (f *FakeAuthProvider) SignOut(ctx context.Context) error {
	f.SetSession(nil)
	f.Emit(domain.EventSignedOut, nil)
	return nil
}

func (f *FakeAuthProvider) GetSession(ctx context.Context) (*domain.AuthSession, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()

	if f.GetSessionDelay > 0 {
		select {
		case <-time.After(f.GetSessionDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.GetSessionErr != nil {
		return nil, f.GetSessionErr
	}
	return f.Session(), nil
}

func (f *FakeAuthProvider) RefreshSession(ctx context.Context) (*domain.AuthSession, error) {
	current := f.Session()
	if current == nil {
		return nil, domain.NewAuthError("no session", nil)
	}
	current.ExpiresAt = time.Now().Add(time.Hour)
	f.SetSession(current)
	f.Emit(domain.EventTokenRefreshed, current)
	return current, nil
}

func (f *FakeAuthProvider) RestoreSession(ctx context.Context, session domain.AuthSession) error {
	f.mu.Lock()
	f.restored = append(f.restored, session)
	f.mu.Unlock()
	f.SetSession(&session)
	return nil
}

func (f *FakeAuthProvider) Subscribe() (<-chan domain.SessionEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	ch := make(chan domain.SessionEvent, 16)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

// Emit delivers an event to every subscriber
func (f *FakeAuthProvider) Emit(kind domain.SessionEventKind, session *domain.AuthSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		var copied *domain.AuthSession
		if session != nil {
			s := *session
			copied = &s
		}
		ch <- domain.SessionEvent{Kind: kind, Session: copied}
	}
}

// SetSession replaces the current session without emitting an event
func (f *FakeAuthProvider) SetSession(session *domain.AuthSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session == nil {
		f.session = nil
		return
	}
	s := *session
	f.session = &s
}

// Session returns a copy of the current session
func (f *FakeAuthProvider) Session() *domain.AuthSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	s := *f.session
	return &s
}

// Restored returns the sessions passed to RestoreSession
func (f *FakeAuthProvider) Restored() []domain.AuthSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuthSession(nil), f.restored...)
}

// SignUps returns the emails signed up
func (f *FakeAuthProvider) SignUps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.signUps...)
}

// Probes returns how many times GetSession was called
func (f *FakeAuthProvider) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}
