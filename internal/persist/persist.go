package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"uranai/internal/domain"
	"uranai/internal/repository"

	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Store is the durable record of one chat's persisted state.
// Storage failures are logged and reported as "nothing stored".
type Store struct {
	repo    repository.StateRepository
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewStore creates a persisted store for key
func NewStore(repo repository.StateRepository, key string, logger *zap.Logger) *Store {
	return &Store{
		repo:    repo,
		key:     key,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Load returns the stored state, or false when none is stored or it cannot be read
func (s *Store) Load(ctx context.Context) (*domain.PersistedState, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := s.repo.LoadState(ctx, s.key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("Failed to load persisted state", zap.String("key", s.key), zap.Error(err))
		return nil, false
	}

	var state domain.PersistedState
	if err := json.Unmarshal(payload, &state); err != nil {
		s.logger.Warn("Discarding corrupt persisted state", zap.String("key", s.key), zap.Error(err))
		return nil, false
	}
	return &state, true
}

// Save writes state
func (s *Store) Save(ctx context.Context, state domain.PersistedState) {
	payload, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("Failed to encode persisted state", zap.String("key", s.key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.SaveState(ctx, s.key, payload); err != nil {
		s.logger.Warn("Failed to save persisted state", zap.String("key", s.key), zap.Error(err))
	}
}

// Clear removes the stored record
func (s *Store) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.DeleteState(ctx, s.key); err != nil {
		s.logger.Warn("Failed to clear persisted state", zap.String("key", s.key), zap.Error(err))
	}
}

// TokenCache is the durable copy of the auth provider's own session token
type TokenCache struct {
	repo    repository.TokenRepository
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewTokenCache creates a token cache for key
func NewTokenCache(repo repository.TokenRepository, key string, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		repo:    repo,
		key:     key,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Load returns the cached token, or false when none is cached
func (c *TokenCache) Load(ctx context.Context) (domain.CachedToken, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.repo.LoadToken(ctx, c.key)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.CachedToken{}, false
	}
	if err != nil {
		c.logger.Warn("Failed to load cached token", zap.String("key", c.key), zap.Error(err))
		return domain.CachedToken{}, false
	}
	return *token, true
}

// Save caches session
func (c *TokenCache) Save(ctx context.Context, session domain.AuthSession) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token := domain.CachedToken{
		UserID:       session.UserID,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}
	if err := c.repo.SaveToken(ctx, c.key, token); err != nil {
		c.logger.Warn("Failed to cache token", zap.String("key", c.key), zap.Error(err))
	}
}

// Clear removes the cached token
func (c *TokenCache) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.repo.DeleteToken(ctx, c.key); err != nil {
		c.logger.Warn("Failed to clear cached token", zap.String("key", c.key), zap.Error(err))
	}
}
