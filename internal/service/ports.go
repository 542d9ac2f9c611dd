package service

import (
	"context"

	"uranai/internal/domain"
)

// ProfileAPI is the backend profile surface
type ProfileAPI interface {
	CreateProfile(ctx context.Context, in domain.ProfileInput) (domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	UpdateProfile(ctx context.Context, id int, update domain.ProfileUpdate) error
	DeleteProfile(ctx context.Context, id int) error
}

// DivinationAPI is the backend divination surface
type DivinationAPI interface {
	CreateDivinationResult(ctx context.Context, req domain.DivinationRequest) (*domain.DivinationPayload, error)
}

// AccountAPI returns the plan and ticket balance of the signed-in user
type AccountAPI interface {
	GetCurrentUser(ctx context.Context) (domain.Entitlement, error)
}

// AuthProvider is the external authentication provider
type AuthProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*domain.AuthSession, error)
	RefreshSession(ctx context.Context) (*domain.AuthSession, error)
	RestoreSession(ctx context.Context, session domain.AuthSession) error
	Subscribe() (<-chan domain.SessionEvent, func())
}

// SessionCache is the durable copy of the provider token
type SessionCache interface {
	Load(ctx context.Context) (domain.CachedToken, bool)
	Save(ctx context.Context, session domain.AuthSession)
	Clear(ctx context.Context)
}

// StateCache is the durable app-state record
type StateCache interface {
	Load(ctx context.Context) (*domain.PersistedState, bool)
}

// ErrorReporter turns failures into something the user sees
type ErrorReporter interface {
	Report(err error)
}
