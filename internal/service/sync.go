package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"uranai/internal/domain"
	"uranai/internal/flow"
	"uranai/internal/metrics"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// StateClearer removes the durable app-state record
type StateClearer interface {
	Clear()
}

// AuthTimeouts bound the startup reconciliation
type AuthTimeouts struct {
	Probe    time.Duration
	Watchdog time.Duration
}

// sessionMessage is a provider event reduced to what the controller acts on
type sessionMessage struct {
	gained  bool
	session domain.AuthSession
}

func normalize(ev domain.SessionEvent) sessionMessage {
	if ev.Kind == domain.EventSignedOut || ev.Session == nil {
		return sessionMessage{}
	}
	return sessionMessage{gained: true, session: *ev.Session}
}

// AuthSynchronizer reconciles the provider session, the durable caches and the store
type AuthSynchronizer struct {
	provider AuthProvider
	cached   StateCache
	tokens   SessionCache
	clearer  StateClearer
	store    *store.Store
	machine  *flow.Machine
	profiles *ProfileService
	account  *AccountService
	reporter ErrorReporter
	metrics  metrics.Recorder
	timeouts AuthTimeouts
	logger   *zap.Logger

	checked sync.Once
	mu      sync.Mutex
	userID  string
	endLoad context.CancelFunc
	wg      sync.WaitGroup
}

// NewAuthSynchronizer creates an auth synchronizer
func NewAuthSynchronizer(
	provider AuthProvider,
	cached StateCache,
	tokens SessionCache,
	clearer StateClearer,
	st *store.Store,
	machine *flow.Machine,
	profiles *ProfileService,
	account *AccountService,
	reporter ErrorReporter,
	recorder metrics.Recorder,
	timeouts AuthTimeouts,
	logger *zap.Logger,
) *AuthSynchronizer {
	return &AuthSynchronizer{
		provider: provider,
		cached:   cached,
		tokens:   tokens,
		clearer:  clearer,
		store:    st,
		machine:  machine,
		profiles: profiles,
		account:  account,
		reporter: reporter,
		metrics:  recorder,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Start runs the startup reconciliation and then follows provider events until
// ctx is cancelled. The auth check completes within the watchdog ceiling even
// when every startup step is stuck.
func (a *AuthSynchronizer) Start(ctx context.Context) {
	events, unsubscribe := a.provider.Subscribe()
	watchdog := time.AfterFunc(a.timeouts.Watchdog, func() {
		a.markChecked("watchdog")
	})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsubscribe()

		a.reconcile(ctx)
		watchdog.Stop()
		a.markChecked("probe")
		// The watchdog may have completed the check before the provisional session was set
		a.machine.ResolveSplash()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				a.handle(ctx, normalize(ev))
			}
		}
	}()
}

// Wait blocks until the receive loop and background loads have exited
func (a *AuthSynchronizer) Wait() {
	a.wg.Wait()
}

func (a *AuthSynchronizer) reconcile(ctx context.Context) {
	if persisted, ok := a.cached.Load(ctx); ok {
		a.store.Set(store.Rehydrate(*persisted))
		if persisted.IsLoggedIn && len(persisted.Profiles) > 0 {
			a.store.Set(func(s *domain.AppState) {
				s.Session.Present = true
			})
			a.logger.Debug("Provisionally trusting persisted session")
		}
	}

	if token, ok := a.tokens.Load(ctx); ok && token.Valid(time.Now()) {
		session := token.AuthSession()
		if err := a.provider.RestoreSession(ctx, session); err != nil {
			a.logger.Warn("Failed to restore cached session", zap.Error(err))
		} else {
			a.sessionGained(ctx, session)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.timeouts.Probe)
	session, err := a.provider.GetSession(probeCtx)
	timedOut := errors.Is(probeCtx.Err(), context.DeadlineExceeded)
	cancel()

	switch {
	case err != nil && timedOut:
		a.logger.Warn("Auth probe timed out, keeping provisional session", zap.Duration("timeout", a.timeouts.Probe))
	case err != nil:
		a.logger.Warn("Auth probe failed, keeping provisional session", zap.Error(err))
		a.reporter.Report(err)
	case session != nil:
		a.sessionGained(ctx, *session)
	default:
		a.sessionLost(ctx)
	}
}

func (a *AuthSynchronizer) markChecked(source string) {
	a.checked.Do(func() {
		a.store.Set(func(s *domain.AppState) {
			s.AuthChecked = true
		})
		a.metrics.RecordAuthChecked(source)
		a.logger.Info("Auth check completed", zap.String("source", source))
		a.machine.ResolveSplash()
	})
}

func (a *AuthSynchronizer) handle(ctx context.Context, msg sessionMessage) {
	if msg.gained {
		a.metrics.RecordAuthEvent("session_gained")
		a.sessionGained(ctx, msg.session)
		return
	}
	a.metrics.RecordAuthEvent("session_lost")
	a.sessionLost(ctx)
}

// sessionGained records session. A session already recognized for the same
// user only refreshes the token cache. The profile and entitlement loads it
// starts commit only while the session is still current.
func (a *AuthSynchronizer) sessionGained(ctx context.Context, session domain.AuthSession) {
	a.tokens.Save(ctx, session)

	a.mu.Lock()
	known := a.userID != "" && a.userID == session.UserID
	var loadCtx context.Context
	if !known {
		a.userID = session.UserID
		if a.endLoad != nil {
			a.endLoad()
		}
		loadCtx, a.endLoad = context.WithCancel(ctx)
	}
	a.mu.Unlock()
	if known {
		return
	}

	a.store.Set(func(s *domain.AppState) {
		s.Session = domain.Session{Present: true, UserID: session.UserID}
		s.IsLoggedIn = true
	})
	a.logger.Info("Session gained", zap.String("user_id", session.UserID))
	a.machine.ResolveSplash()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.profiles.LoadAll(loadCtx); err != nil && !errors.Is(err, errSuperseded) {
			a.reporter.Report(err)
		}
		if err := a.account.RefreshEntitlement(loadCtx); err != nil && !errors.Is(err, errSuperseded) {
			a.reporter.Report(err)
		}
	}()
}

// sessionLost drops everything tied to the session and returns to the splash screen
func (a *AuthSynchronizer) sessionLost(ctx context.Context) {
	a.mu.Lock()
	a.userID = ""
	if a.endLoad != nil {
		a.endLoad()
		a.endLoad = nil
	}
	a.mu.Unlock()

	a.store.Set(func(s *domain.AppState) {
		s.Session = domain.Session{}
		s.IsLoggedIn = false
		s.Profiles = nil
		s.ProfilesLoaded = false
	})
	a.machine.Redirect(domain.ScreenSplash)
	a.tokens.Clear(ctx)
	a.clearer.Clear()
	a.logger.Info("Session lost")
}
