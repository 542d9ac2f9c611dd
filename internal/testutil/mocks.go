package testutil

import (
	"context"

	"uranai/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockStateRepository is a mock for StateRepository
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) LoadState(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStateRepository) SaveState(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

func (m *MockStateRepository) DeleteState(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStateRepository) CleanOldStates(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}

// MockTokenRepository is a mock for TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) LoadToken(ctx context.Context, key string) (*domain.CachedToken, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CachedToken), args.Error(1)
}

func (m *MockTokenRepository) SaveToken(ctx context.Context, key string, token domain.CachedToken) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteToken(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockTokenRepository) CleanOldTokens(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}

// MockProfileAPI is a mock for the backend profile surface
type MockProfileAPI struct {
	mock.Mock
}

func (m *MockProfileAPI) CreateProfile(ctx context.Context, in domain.ProfileInput) (domain.Profile, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func (m *MockProfileAPI) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *MockProfileAPI) UpdateProfile(ctx context.Context, id int, update domain.ProfileUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockProfileAPI) DeleteProfile(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccountAPI is a mock for the backend account surface
type MockAccountAPI struct {
	mock.Mock
}

func (m *MockAccountAPI) GetCurrentUser(ctx context.Context) (domain.Entitlement, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Entitlement), args.Error(1)
}
