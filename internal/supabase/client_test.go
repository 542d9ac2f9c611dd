package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uranai/internal/domain"
	"uranai/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// fakeGoTrue answers the token, signup and logout endpoints
type fakeGoTrue struct {
	t          *testing.T
	accessExp  time.Time
	refreshErr bool
	logouts    int
	signups    []string
	redirect   string
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "anon", r.Header.Get("apikey"))

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch {
	case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
			return
		}
		f.writeToken(w, "user-1", body["email"], "refresh-1")
	case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "refresh_token":
		if f.refreshErr {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Refresh Token Not Found"}`))
			return
		}
		f.writeToken(w, "user-1", "", "refresh-2")
	case r.URL.Path == "/auth/v1/signup":
		f.signups = append(f.signups, body["email"])
		f.redirect = r.URL.Query().Get("redirect_to")
		w.Write([]byte(`{"id":"user-2","email":"` + body["email"] + `"}`))
	case r.URL.Path == "/auth/v1/logout":
		f.logouts++
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGoTrue) writeToken(w http.ResponseWriter, sub, email, refresh string) {
	resp := map[string]any{
		"access_token":  signToken(f.t, sub, f.accessExp),
		"token_type":    "bearer",
		"refresh_token": refresh,
		"user":          map[string]string{"id": sub, "email": email},
	}
	json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T) (*Client, *fakeGoTrue) {
	t.Helper()
	fake := &fakeGoTrue{t: t, accessExp: time.Now().Add(time.Hour)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "anon", server.Client(), 5*time.Minute, testutil.NewTestLogger()), fake
}

func nextEvent(t *testing.T, events <-chan domain.SessionEvent) domain.SessionEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no session event")
		return domain.SessionEvent{}
	}
}

func TestClient_SignInEmitsSignedIn(t *testing.T) {
	c, _ := newTestClient(t)
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	session, err := c.SignInWithPassword(context.Background(), "a@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "a@example.com", session.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 2*time.Second)

	ev := nextEvent(t, events)
	assert.Equal(t, domain.EventSignedIn, ev.Kind)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "user-1", ev.Session.UserID)

	current, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session, current)
}

func TestClient_SignInRejected(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.SignInWithPassword(context.Background(), "a@example.com", "wrong")

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindAuth, derr.Kind)
	assert.Equal(t, "メールアドレスまたはパスワードが正しくありません。", derr.Message)

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestClient_SignUpDoesNotStartSession(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.SignUp(context.Background(), "new@example.com", "secret", "https://example.com/cb?x=1")

	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, fake.signups)
	assert.Equal(t, "https://example.com/cb?x=1", fake.redirect)
	session, _ := c.GetSession(context.Background())
	assert.Nil(t, session)
}

func TestClient_SignOut(t *testing.T) {
	c, fake := newTestClient(t)
	_, err := c.SignInWithPassword(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.SignOut(context.Background()))

	assert.Equal(t, 1, fake.logouts)
	ev := nextEvent(t, events)
	assert.Equal(t, domain.EventSignedOut, ev.Kind)
	assert.Nil(t, ev.Session)
	session, _ := c.GetSession(context.Background())
	assert.Nil(t, session)
}

func TestClient_AccessTokenRefreshesNearExpiry(t *testing.T) {
	c, fake := newTestClient(t)
	fake.accessExp = time.Now().Add(time.Minute)
	_, err := c.SignInWithPassword(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	fake.accessExp = time.Now().Add(time.Hour)
	token, err := c.AccessToken(context.Background())

	require.NoError(t, err)
	claims, err := parseClaims(token)
	require.NoError(t, err)
	assert.WithinDuration(t, fake.accessExp, claims.ExpiresAt.Time, time.Second)

	ev := nextEvent(t, events)
	assert.Equal(t, domain.EventTokenRefreshed, ev.Kind)
	assert.Equal(t, "a@example.com", ev.Session.Email)
	assert.Equal(t, "refresh-2", ev.Session.RefreshToken)
}

func TestClient_RejectedRefreshEndsSession(t *testing.T) {
	c, fake := newTestClient(t)
	fake.accessExp = time.Now().Add(-time.Minute)
	_, err := c.SignInWithPassword(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	fake.refreshErr = true
	session, err := c.GetSession(context.Background())

	assert.Nil(t, session)
	assert.True(t, domain.IsKind(err, domain.KindAuth))
	assert.Equal(t, domain.EventSignedOut, nextEvent(t, events).Kind)

	_, err = c.AccessToken(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindAuth))
}

func TestClient_RestoreSessionFillsSubject(t *testing.T) {
	c, _ := newTestClient(t)
	exp := time.Now().Add(time.Hour)
	token := signToken(t, "user-9", exp)

	require.NoError(t, c.RestoreSession(context.Background(), domain.AuthSession{
		AccessToken: token,
		ExpiresAt:   exp,
	}))

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-9", session.UserID)
}

func TestClient_RestoreSessionRejectsGarbage(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.RestoreSession(context.Background(), domain.AuthSession{AccessToken: "not-a-jwt"})

	assert.True(t, domain.IsKind(err, domain.KindAuth))
}

func TestClient_SlowSubscriberKeepsNewest(t *testing.T) {
	c, _ := newTestClient(t)
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+3; i++ {
		c.setSession(&domain.AuthSession{UserID: "u"}, domain.EventTokenRefreshed)
	}
	c.setSession(nil, domain.EventSignedOut)

	var last domain.SessionEvent
	for len(events) > 0 {
		last = <-events
	}
	assert.Equal(t, domain.EventSignedOut, last.Kind)
}

func TestClient_UnsubscribeClosesChannel(t *testing.T) {
	c, _ := newTestClient(t)
	events, unsubscribe := c.Subscribe()

	unsubscribe()
	unsubscribe()
	c.setSession(nil, domain.EventSignedOut)

	_, ok := <-events
	assert.False(t, ok)
}
