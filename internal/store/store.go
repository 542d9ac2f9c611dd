package store

import (
	"sync"

	"uranai/internal/domain"
)

// Listener observes a committed change. Listeners must not modify the states they receive.
type Listener func(prev, next domain.AppState)

// Mutation changes a working copy of the state
type Mutation func(*domain.AppState)

type change struct {
	prev domain.AppState
	next domain.AppState
}

type subscription struct {
	id       int
	listener Listener
}

// Store is the single source of truth for one controller.
// Mutations commit atomically and listeners see changes in commit order.
type Store struct {
	mu       sync.Mutex
	state    domain.AppState
	pending  []change
	draining bool

	lmu       sync.Mutex
	listeners []subscription
	nextID    int
}

// New creates a store holding initial
func New(initial domain.AppState) *Store {
	return &Store{state: initial.Clone()}
}

// Get returns a snapshot of the current state
func (s *Store) Get() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Set applies muts as one atomic change
func (s *Store) Set(muts ...Mutation) {
	s.Transact(func(st *domain.AppState) bool {
		for _, m := range muts {
			m(st)
		}
		return true
	})
}

// Transact runs fn on a working copy and commits it only when fn returns true
func (s *Store) Transact(fn func(*domain.AppState) bool) bool {
	s.mu.Lock()
	next := s.state.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = next
	s.pending = append(s.pending, change{prev: prev, next: next.Clone()})
	s.mu.Unlock()

	s.drain()
	return true
}

// Subscribe registers l for every later change and returns a function removing it
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// drain delivers queued changes. Only one goroutine drains at a time; changes
// committed meanwhile, including re-entrant ones made by listeners, are queued.
func (s *Store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, sub := range s.snapshot() {
			sub.listener(c.prev, c.next)
		}

		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Store) snapshot() []subscription {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return append([]subscription(nil), s.listeners...)
}
