package flow

import (
	"sync"
	"time"

	"uranai/internal/domain"
	"uranai/internal/store"
)

// LoadingTimer moves a loading screen to the result once its duration elapses.
// A timer whose loading screen was left early does nothing.
type LoadingTimer struct {
	store    *store.Store
	machine  *Machine
	duration time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	unsubscribe func()
}

// NewLoadingTimer creates a loading timer
func NewLoadingTimer(st *store.Store, machine *Machine, duration time.Duration) *LoadingTimer {
	return &LoadingTimer{store: st, machine: machine, duration: duration}
}

// Start begins watching screen changes
func (l *LoadingTimer) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsubscribe = l.store.Subscribe(l.onChange)
}

// Stop stops watching and cancels a pending timer
func (l *LoadingTimer) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *LoadingTimer) onChange(prev, next domain.AppState) {
	if prev.Screen == next.Screen || !next.Screen.IsLoading() {
		return
	}
	screen := next.Screen

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.duration, func() {
		_ = l.machine.CompleteLoading(screen)
	})
}
