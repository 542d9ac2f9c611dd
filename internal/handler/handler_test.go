package handler

import (
	"testing"
	"time"

	"uranai/internal/app"
	"uranai/internal/domain"
	"uranai/internal/metrics"
	"uranai/internal/service"
	"uranai/internal/store"
	"uranai/internal/testutil"
)

type testChat struct {
	ctrl       *app.Controller
	provider   *testutil.FakeAuthProvider
	profileAPI *testutil.MockProfileAPI
}

// newTestChat builds a controller whose workers are not started, so actions
// act on the store directly
func newTestChat(t *testing.T, muts ...store.Mutation) *testChat {
	t.Helper()
	tc := &testChat{
		provider:   testutil.NewFakeAuthProvider(),
		profileAPI: new(testutil.MockProfileAPI),
	}
	tc.ctrl = app.NewController(
		42,
		app.Backends{
			Provider:   tc.provider,
			Profiles:   tc.profileAPI,
			Divination: &testutil.FakeDivinationAPI{},
			Account:    new(testutil.MockAccountAPI),
		},
		app.Storage{
			States: testutil.NewMemoryStateRepository(),
			Tokens: testutil.NewMemoryTokenRepository(),
			Key:    "uranai-app-storage:42",
		},
		app.Settings{
			ErrorDisplay:    time.Minute,
			LoadingDuration: time.Minute,
			Auth:            service.AuthTimeouts{Probe: time.Second, Watchdog: time.Second},
		},
		metrics.Nop{},
		testutil.NewTestLogger(),
	)
	t.Cleanup(tc.ctrl.Reporter.Stop)
	tc.ctrl.Store.Set(muts...)
	return tc
}

func signedIn(screen domain.Screen, profiles ...domain.Profile) store.Mutation {
	return func(s *domain.AppState) {
		s.AuthChecked = true
		s.Session = domain.Session{Present: true, UserID: "user-1"}
		s.IsLoggedIn = true
		s.Screen = screen
		s.Profiles = profiles
		s.ProfilesLoaded = true
	}
}

func withSelection(sel domain.Selection) store.Mutation {
	return func(s *domain.AppState) {
		s.Selection = sel
	}
}

func readyResult(balance int) store.Mutation {
	return func(s *domain.AppState) {
		s.Selection = domain.Selection{
			Purpose:     domain.PurposePersonal,
			FortuneType: domain.FortuneTarot,
			ProfileIDs:  []int{1},
		}
		key, _ := domain.NewFetchKey(s.Selection)
		s.Result = domain.DivinationResult{
			Key:     key,
			Status:  domain.ResultReady,
			Payload: testutil.NewTestPayload(domain.FortuneTarot, domain.PurposePersonal, "今日は良い日です。"),
		}
		s.Entitlement.TicketBalance = balance
	}
}
