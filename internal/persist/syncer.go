package persist

import (
	"context"
	"reflect"
	"sync"

	"uranai/internal/domain"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// Syncer writes the persisted subset of the state after every change.
// Nothing is written until the startup auth check has completed. Writes are
// coalesced so a slow database only ever sees the newest snapshot.
type Syncer struct {
	state     *store.Store
	persisted *Store
	logger    *zap.Logger

	mu      sync.Mutex
	last    *domain.PersistedState
	pending *domain.PersistedState
	drop    bool
	wake    chan struct{}
	done    chan struct{}
}

// NewSyncer creates a syncer from state to persisted
func NewSyncer(state *store.Store, persisted *Store, logger *zap.Logger) *Syncer {
	return &Syncer{
		state:     state,
		persisted: persisted,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the store and runs the writer until ctx is cancelled.
// Pending work is flushed before the writer exits.
func (s *Syncer) Start(ctx context.Context) {
	unsubscribe := s.state.Subscribe(s.onChange)
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(s.done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				s.flush(writeCtx)
				return
			case <-s.wake:
				s.flush(writeCtx)
			}
		}
	}()
}

// Done is closed once the writer has exited
func (s *Syncer) Done() <-chan struct{} {
	return s.done
}

// Clear drops any pending snapshot and deletes the stored record
func (s *Syncer) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.last = nil
	s.drop = true
	s.mu.Unlock()
	s.signal()
}

func (s *Syncer) onChange(_, next domain.AppState) {
	if !next.AuthChecked {
		return
	}
	snapshot := next.Persisted()

	s.mu.Lock()
	if s.last != nil && reflect.DeepEqual(*s.last, snapshot) {
		s.mu.Unlock()
		return
	}
	s.last = &snapshot
	s.pending = &snapshot
	s.mu.Unlock()
	s.signal()
}

func (s *Syncer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) flush(ctx context.Context) {
	s.mu.Lock()
	drop, pending := s.drop, s.pending
	s.drop, s.pending = false, nil
	s.mu.Unlock()

	if drop {
		s.persisted.Clear(ctx)
	}
	if pending != nil {
		s.persisted.Save(ctx, *pending)
		s.logger.Debug("Persisted state saved", zap.String("screen", string(pending.CurrentScreen)))
	}
}
