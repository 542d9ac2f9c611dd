package repository

import (
	"context"
	"errors"

	"uranai/internal/domain"
)

// ErrNotFound is returned when no record exists for a key
var ErrNotFound = errors.New("record not found")

// StateRepository stores the persisted app-state record of each chat
type StateRepository interface {
	LoadState(ctx context.Context, key string) ([]byte, error)
	SaveState(ctx context.Context, key string, payload []byte) error
	DeleteState(ctx context.Context, key string) error
	CleanOldStates(ctx context.Context, days int) (int64, error)
}

// TokenRepository stores the auth provider's durable token cache
type TokenRepository interface {
	LoadToken(ctx context.Context, key string) (*domain.CachedToken, error)
	SaveToken(ctx context.Context, key string, token domain.CachedToken) error
	DeleteToken(ctx context.Context, key string) error
	CleanOldTokens(ctx context.Context, days int) (int64, error)
}
