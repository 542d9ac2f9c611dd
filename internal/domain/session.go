package domain

import "time"

// Session is the controller's view of whether a user is signed in
type Session struct {
	Present bool
	UserID  string
}

// AuthSession is a session as issued by the auth provider
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	Email        string
}

// Remaining returns the lifetime left at now
func (s AuthSession) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// CachedToken is the durable copy of the provider token
type CachedToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the cached token has not expired at now
func (t CachedToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now)
}

// AuthSession converts the cached token back to a provider session
func (t CachedToken) AuthSession() AuthSession {
	return AuthSession{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		UserID:       t.UserID,
	}
}

// SessionEventKind is the kind of provider session notification
type SessionEventKind string

const (
	EventInitialSession SessionEventKind = "INITIAL_SESSION"
	EventSignedIn       SessionEventKind = "SIGNED_IN"
	EventSignedOut      SessionEventKind = "SIGNED_OUT"
	EventTokenRefreshed SessionEventKind = "TOKEN_REFRESHED"
	EventUserUpdated    SessionEventKind = "USER_UPDATED"
)

// SessionEvent is a session-change notification from the auth provider
type SessionEvent struct {
	Kind    SessionEventKind
	Session *AuthSession
}

// Entitlement gates premium features and ticket-consuming actions
type Entitlement struct {
	IsPremium     bool
	TicketBalance int
}

// DefaultTicketBalance is granted to a fresh state
const DefaultTicketBalance = 5
