package postgres

import (
	"context"
	"database/sql"
	"errors"

	"uranai/internal/repository"
)

// StateRepo implements repository.StateRepository
type StateRepo struct {
	db *sql.DB
}

// NewStateRepo creates a new app-state repository
func NewStateRepo(db *sql.DB) *StateRepo {
	return &StateRepo{db: db}
}

// LoadState returns the stored payload for key
func (r *StateRepo) LoadState(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	query := `SELECT payload FROM app_states WHERE state_key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// SaveState inserts or replaces the payload for key
func (r *StateRepo) SaveState(ctx context.Context, key string, payload []byte) error {
	query := `
		INSERT INTO app_states (state_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (state_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, key, payload)
	return err
}

// DeleteState removes the record for key
func (r *StateRepo) DeleteState(ctx context.Context, key string) error {
	query := `DELETE FROM app_states WHERE state_key = $1`
	_, err := r.db.ExecContext(ctx, query, key)
	return err
}

// CleanOldStates deletes records not updated for the given number of days
func (r *StateRepo) CleanOldStates(ctx context.Context, days int) (int64, error) {
	query := `
		DELETE FROM app_states
		WHERE updated_at < NOW() - INTERVAL '1 day' * $1
	`
	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
