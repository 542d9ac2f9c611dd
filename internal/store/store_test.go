package store

import (
	"sync"
	"testing"
	"time"

	"uranai/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndGet(t *testing.T) {
	s := New(domain.NewAppState())

	s.Set(WithScreen(domain.ScreenHome), WithError("oops"))

	state := s.Get()
	assert.Equal(t, domain.ScreenHome, state.Screen)
	assert.Equal(t, "oops", state.Error)
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	s := New(domain.NewAppState())
	s.Set(WithProfiles([]domain.Profile{{ID: 1, Nickname: "a"}}))

	snap := s.Get()
	snap.Profiles[0].Nickname = "changed"

	assert.Equal(t, "a", s.Get().Profiles[0].Nickname)
}

func TestStore_TransactRejected(t *testing.T) {
	s := New(domain.NewAppState())
	calls := 0
	s.Subscribe(func(prev, next domain.AppState) { calls++ })

	ok := s.Transact(func(st *domain.AppState) bool {
		st.Screen = domain.ScreenMyPage
		return false
	})

	assert.False(t, ok)
	assert.Equal(t, domain.ScreenSplash, s.Get().Screen)
	assert.Equal(t, 0, calls)
}

func TestStore_ListenerSeesPrevAndNext(t *testing.T) {
	s := New(domain.NewAppState())

	var got []domain.Screen
	s.Subscribe(func(prev, next domain.AppState) {
		got = append(got, prev.Screen, next.Screen)
	})

	s.Set(WithScreen(domain.ScreenHome))

	assert.Equal(t, []domain.Screen{domain.ScreenSplash, domain.ScreenHome}, got)
}

func TestStore_ReentrantSetIsOrdered(t *testing.T) {
	s := New(domain.NewAppState())

	var seen []domain.Screen
	s.Subscribe(func(prev, next domain.AppState) {
		if next.Screen == domain.ScreenHome {
			s.Set(WithScreen(domain.ScreenPersonSelect))
		}
	})
	s.Subscribe(func(prev, next domain.AppState) {
		seen = append(seen, next.Screen)
	})

	s.Set(WithScreen(domain.ScreenHome))

	assert.Equal(t, []domain.Screen{domain.ScreenHome, domain.ScreenPersonSelect}, seen)
	assert.Equal(t, domain.ScreenPersonSelect, s.Get().Screen)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(domain.NewAppState())
	calls := 0
	unsubscribe := s.Subscribe(func(prev, next domain.AppState) { calls++ })

	s.Set(WithScreen(domain.ScreenHome))
	unsubscribe()
	unsubscribe()
	s.Set(WithScreen(domain.ScreenMyPage))

	assert.Equal(t, 1, calls)
}

func TestStore_ConcurrentSets(t *testing.T) {
	s := New(domain.NewAppState())

	var mu sync.Mutex
	notified := 0
	s.Subscribe(func(prev, next domain.AppState) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Transact(func(st *domain.AppState) bool {
				st.Entitlement.TicketBalance++
				return true
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.DefaultTicketBalance+50, s.Get().Entitlement.TicketBalance)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return notified == 50
	}, time.Second, time.Millisecond)
}

func TestRehydrate(t *testing.T) {
	s := New(domain.NewAppState())
	s.Set(func(st *domain.AppState) { st.Session = domain.Session{Present: true, UserID: "u"} })

	s.Set(Rehydrate(domain.PersistedState{
		IsLoggedIn:         true,
		IsPremium:          false,
		CurrentScreen:      domain.ScreenFortuneType,
		TicketBalance:      -2,
		Profiles:           []domain.Profile{{ID: 1}, {ID: 2}},
		FortunePurpose:     domain.PurposePersonal,
		FortuneType:        "bogus",
		SelectedProfileIDs: []int{1, 2},
	}))

	state := s.Get()
	require.True(t, state.Session.Present)
	assert.True(t, state.IsLoggedIn)
	assert.Equal(t, 0, state.Entitlement.TicketBalance)
	assert.Equal(t, domain.ScreenSplash, state.Screen)
	assert.Equal(t, domain.ScreenFortuneType, state.ResumeScreen)
	assert.Equal(t, []int{1}, state.Selection.ProfileIDs)
	assert.Equal(t, domain.FortuneNone, state.Selection.FortuneType)
	assert.Len(t, state.Profiles, 2)
	assert.True(t, state.ProfilesLoaded)
}

func TestRehydrate_EmptyProfilesNotLoaded(t *testing.T) {
	s := New(domain.NewAppState())

	s.Set(Rehydrate(domain.PersistedState{IsLoggedIn: true, CurrentScreen: domain.ScreenHome}))

	assert.False(t, s.Get().ProfilesLoaded)
}
