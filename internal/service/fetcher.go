package service

import (
	"context"
	"sync"

	"uranai/internal/domain"
	"uranai/internal/flow"
	"uranai/internal/metrics"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// DivinationFetcher issues at most one backend request per fetch key while the
// result screen is shown. A response commits only if its request is still the
// current one; stale responses are dropped.
type DivinationFetcher struct {
	api      DivinationAPI
	store    *store.Store
	machine  *flow.Machine
	reporter ErrorReporter
	metrics  metrics.Recorder
	logger   *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	dispatched  string
	seq         uint64
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewDivinationFetcher creates a new fetcher
func NewDivinationFetcher(
	api DivinationAPI,
	st *store.Store,
	machine *flow.Machine,
	reporter ErrorReporter,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *DivinationFetcher {
	return &DivinationFetcher{
		api:      api,
		store:    st,
		machine:  machine,
		reporter: reporter,
		metrics:  recorder,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start watches the store; requests run under ctx
func (f *DivinationFetcher) Start(ctx context.Context) {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()

	unsubscribe := f.store.Subscribe(f.onChange)

	f.mu.Lock()
	f.unsubscribe = unsubscribe
	f.mu.Unlock()

	f.evaluate(f.store.Get())
}

// Stop stops watching and waits for in-flight requests
func (f *DivinationFetcher) Stop() {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	f.wg.Wait()
}

// Refresh re-arms the fetcher so the current key is requested once more
func (f *DivinationFetcher) Refresh() {
	f.mu.Lock()
	f.dispatched = ""
	f.mu.Unlock()

	f.evaluate(f.store.Get())
}

func (f *DivinationFetcher) onChange(prev, next domain.AppState) {
	if prev.Screen == domain.ScreenResult && next.Screen != domain.ScreenResult {
		f.leave()
		return
	}
	f.evaluate(next)
}

// leave forgets the dispatched key so a later visit fetches again
func (f *DivinationFetcher) leave() {
	f.mu.Lock()
	f.dispatched = ""
	f.seq++
	f.mu.Unlock()

	f.store.Transact(func(s *domain.AppState) bool {
		if s.Result.Status == domain.ResultIdle {
			return false
		}
		s.Result = domain.IdleResult()
		return true
	})
}

func (f *DivinationFetcher) evaluate(s domain.AppState) {
	if s.Screen != domain.ScreenResult || !s.ProfilesLoaded {
		return
	}

	key, ok := domain.NewFetchKey(s.Selection)
	if !ok {
		f.logger.Warn("Result screen without a complete selection")
		f.machine.Redirect(domain.ScreenHome)
		return
	}
	token := key.String()

	f.mu.Lock()
	if f.dispatched == token {
		f.mu.Unlock()
		return
	}
	f.dispatched = token
	f.seq++
	seq := f.seq
	ctx := f.ctx
	f.mu.Unlock()

	profiles := make([]domain.Profile, 0, len(s.Selection.ProfileIDs))
	for _, id := range s.Selection.ProfileIDs {
		p, found := domain.FindProfile(s.Profiles, id)
		if !found {
			f.metrics.RecordDivinationFailure(string(domain.KindDataIntegrity))
			f.reporter.Report(domain.NewDataIntegrityError(id))
			return
		}
		profiles = append(profiles, p)
	}
	req := domain.NewDivinationRequest(key, profiles, s.Selection.ConsultationText)

	started := f.store.Transact(func(st *domain.AppState) bool {
		if !f.isCurrent(seq) || st.Screen != domain.ScreenResult {
			return false
		}
		st.Result = domain.DivinationResult{Key: key, Status: domain.ResultLoading}
		return true
	})
	if !started {
		return
	}

	f.metrics.RecordDivinationRequest(string(key.FortuneType))
	f.logger.Info("Requesting divination", zap.String("fetch_key", token))

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		payload, err := f.api.CreateDivinationResult(ctx, req)
		f.complete(seq, key, payload, err)
	}()
}

func (f *DivinationFetcher) isCurrent(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq == seq
}

func (f *DivinationFetcher) complete(seq uint64, key domain.FetchKey, payload *domain.DivinationPayload, err error) {
	status := domain.ResultReady
	if err != nil {
		status = domain.ResultError
	}

	committed := f.store.Transact(func(st *domain.AppState) bool {
		if !f.isCurrent(seq) || st.Screen != domain.ScreenResult || !st.Result.Key.Equal(key) {
			return false
		}
		st.Result = domain.DivinationResult{Key: key, Status: status, Payload: payload}
		return true
	})
	if !committed {
		f.metrics.RecordDivinationDiscarded()
		f.logger.Debug("Discarding superseded divination response", zap.String("fetch_key", key.String()))
		return
	}

	if err != nil {
		kind := string(domain.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
		f.metrics.RecordDivinationFailure(kind)
		f.logger.Warn("Divination request failed", zap.String("fetch_key", key.String()), zap.Error(err))
		f.machine.Redirect(domain.ScreenHome)
		f.reporter.Report(err)
	}
}
