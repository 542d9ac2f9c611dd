package service

import (
	"context"
	"strings"

	"uranai/internal/domain"
	"uranai/internal/flow"
	"uranai/internal/store"

	"go.uber.org/zap"
)

// AccountService handles login, registration, logout and plan sync
type AccountService struct {
	provider    AuthProvider
	account     AccountAPI
	store       *store.Store
	modals      *flow.Modals
	redirectURL string
	logger      *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	provider AuthProvider,
	account AccountAPI,
	st *store.Store,
	modals *flow.Modals,
	redirectURL string,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		provider:    provider,
		account:     account,
		store:       st,
		modals:      modals,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return domain.NewValidationError("メールアドレスを入力してください。")
	}
	if password == "" {
		return domain.NewValidationError("パスワードを入力してください。")
	}
	return nil
}

// asAuthError keeps controller errors and turns anything else into an AuthError
func asAuthError(err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewAuthError(err.Error(), err)
}

// Login signs in with email and password. The provider's session event moves
// the screen; a successful login only closes the modal.
func (s *AccountService) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	if _, err := s.provider.SignInWithPassword(ctx, email, password); err != nil {
		s.logger.Info("Login failed", zap.Error(err))
		return asAuthError(err)
	}

	s.modals.Hide()
	return nil
}

// Register signs up a new account. The user confirms by mail before logging in.
func (s *AccountService) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	if err := s.provider.SignUp(ctx, email, password, s.redirectURL); err != nil {
		s.logger.Info("Sign-up failed", zap.Error(err))
		return asAuthError(err)
	}

	s.modals.Hide()
	return nil
}

// Logout signs out. Session cleanup follows from the provider's sign-out event.
func (s *AccountService) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("Logout failed", zap.Error(err))
		return asAuthError(err)
	}
	return nil
}

// RefreshEntitlement copies the plan and ticket balance from the backend. Nothing
// is written once ctx is done.
func (s *AccountService) RefreshEntitlement(ctx context.Context) error {
	e, err := s.account.GetCurrentUser(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return errSuperseded
		}
		s.logger.Warn("Failed to refresh entitlement", zap.Error(err))
		return err
	}
	if e.TicketBalance < 0 {
		e.TicketBalance = 0
	}

	committed := s.store.Transact(func(st *domain.AppState) bool {
		if ctx.Err() != nil {
			return false
		}
		store.WithEntitlement(e)(st)
		return true
	})
	if !committed {
		return errSuperseded
	}
	return nil
}
