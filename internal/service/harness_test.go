package service

import (
	"context"
	"sync"
	"time"

	"uranai/internal/domain"
	"uranai/internal/flow"
	"uranai/internal/metrics"
	"uranai/internal/store"
	"uranai/internal/testutil"
)

// memStateCache is an in-memory StateCache with optional latency
type memStateCache struct {
	state *domain.PersistedState
	delay time.Duration
}

func (c *memStateCache) Load(ctx context.Context) (*domain.PersistedState, bool) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.state == nil {
		return nil, false
	}
	s := *c.state
	return &s, true
}

// memTokenCache is an in-memory SessionCache
type memTokenCache struct {
	mu      sync.Mutex
	token   *domain.CachedToken
	saves   int
	cleared int
}

func (c *memTokenCache) Load(ctx context.Context) (domain.CachedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return domain.CachedToken{}, false
	}
	return *c.token, true
}

func (c *memTokenCache) Save(ctx context.Context, s domain.AuthSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.token = &domain.CachedToken{
		UserID:       s.UserID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

func (c *memTokenCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	c.token = nil
}

func (c *memTokenCache) current() *domain.CachedToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return nil
	}
	t := *c.token
	return &t
}

func (c *memTokenCache) clearCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

// countingClearer counts persisted-state clears
type countingClearer struct {
	mu    sync.Mutex
	count int
}

func (c *countingClearer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingClearer) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// harness wires one controller's worth of components around fakes
type harness struct {
	store      *store.Store
	machine    *flow.Machine
	modals     *flow.Modals
	reporter   *flow.Reporter
	recorder   *testutil.ErrorRecorder
	profileAPI *testutil.MockProfileAPI
	accountAPI *testutil.MockAccountAPI
	divination *testutil.FakeDivinationAPI
	provider   *testutil.FakeAuthProvider
	profiles   *ProfileService
	account    *AccountService
	fetcher    *DivinationFetcher
	actions    *ResultActions
}

// reportBoth routes errors through the real reporter and records them
type reportBoth struct {
	reporter *flow.Reporter
	recorder *testutil.ErrorRecorder
}

func (r reportBoth) Report(err error) {
	r.reporter.Report(err)
	r.recorder.Report(err)
}

func newHarness(muts ...store.Mutation) *harness {
	logger := testutil.NewTestLogger()
	st := store.New(domain.NewAppState())
	st.Set(muts...)

	machine := flow.NewMachine(st, logger)
	modals := flow.NewModals(st)
	reporter := flow.NewReporter(st, modals, machine, time.Minute, logger)
	recorder := &testutil.ErrorRecorder{}
	both := reportBoth{reporter: reporter, recorder: recorder}

	h := &harness{
		store:      st,
		machine:    machine,
		modals:     modals,
		reporter:   reporter,
		recorder:   recorder,
		profileAPI: new(testutil.MockProfileAPI),
		accountAPI: new(testutil.MockAccountAPI),
		divination: &testutil.FakeDivinationAPI{},
		provider:   testutil.NewFakeAuthProvider(),
	}
	h.profiles = NewProfileService(h.profileAPI, st, logger)
	h.account = NewAccountService(h.provider, h.accountAPI, st, modals, "https://example.com/auth/callback", logger)
	h.fetcher = NewDivinationFetcher(h.divination, st, machine, both, metrics.Nop{}, logger)
	h.actions = NewResultActions(st, h.fetcher, metrics.Nop{}, logger)
	return h
}

func (h *harness) close() {
	h.fetcher.Stop()
	h.reporter.Stop()
}

func profilesOf(ids ...int) []domain.Profile {
	profiles := make([]domain.Profile, len(ids))
	for i, id := range ids {
		profiles[i] = testutil.NewTestProfile(id, "p")
	}
	return profiles
}
