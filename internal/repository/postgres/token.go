package postgres

import (
	"context"
	"database/sql"
	"errors"

	"uranai/internal/domain"
	"uranai/internal/repository"
)

// TokenRepo implements repository.TokenRepository
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new session-token repository
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// LoadToken returns the cached token for key
func (r *TokenRepo) LoadToken(ctx context.Context, key string) (*domain.CachedToken, error) {
	var token domain.CachedToken
	query := `
		SELECT user_id, access_token, refresh_token, expires_at
		FROM session_tokens
		WHERE state_key = $1
	`
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&token.UserID,
		&token.AccessToken,
		&token.RefreshToken,
		&token.ExpiresAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// SaveToken inserts or replaces the cached token for key
func (r *TokenRepo) SaveToken(ctx context.Context, key string, token domain.CachedToken) error {
	query := `
		INSERT INTO session_tokens (state_key, user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (state_key)
		DO UPDATE SET user_id = EXCLUDED.user_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, key, token.UserID, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	return err
}

// DeleteToken removes the cached token for key
func (r *TokenRepo) DeleteToken(ctx context.Context, key string) error {
	query := `DELETE FROM session_tokens WHERE state_key = $1`
	_, err := r.db.ExecContext(ctx, query, key)
	return err
}

// CleanOldTokens deletes tokens not updated for the given number of days
func (r *TokenRepo) CleanOldTokens(ctx context.Context, days int) (int64, error) {
	query := `
		DELETE FROM session_tokens
		WHERE updated_at < NOW() - INTERVAL '1 day' * $1
	`
	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
