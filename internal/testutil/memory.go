package testutil

import (
	"context"
	"sync"

	"uranai/internal/domain"
	"uranai/internal/repository"
)

// MemoryStateRepository is an in-memory StateRepository
type MemoryStateRepository struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryStateRepository creates an empty repository
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{records: make(map[string][]byte)}
}

func (r *MemoryStateRepository) LoadState(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload, ok := r.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return payload, nil
}

func (r *MemoryStateRepository) SaveState(ctx context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = append([]byte(nil), payload...)
	return nil
}

func (r *MemoryStateRepository) DeleteState(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *MemoryStateRepository) CleanOldStates(ctx context.Context, days int) (int64, error) {
	return 0, nil
}

// Payload returns the stored record for key
func (r *MemoryStateRepository) Payload(key string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload, ok := r.records[key]
	return payload, ok
}

// MemoryTokenRepository is an in-memory TokenRepository
type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.CachedToken
}

// NewMemoryTokenRepository creates an empty repository
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[string]domain.CachedToken)}
}

func (r *MemoryTokenRepository) LoadToken(ctx context.Context, key string) (*domain.CachedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &token, nil
}

func (r *MemoryTokenRepository) SaveToken(ctx context.Context, key string, token domain.CachedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[key] = token
	return nil
}

func (r *MemoryTokenRepository) DeleteToken(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, key)
	return nil
}

func (r *MemoryTokenRepository) CleanOldTokens(ctx context.Context, days int) (int64, error) {
	return 0, nil
}

// Token returns the stored token for key
func (r *MemoryTokenRepository) Token(key string) (domain.CachedToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[key]
	return token, ok
}
