package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"uranai/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestStateRepo_LoadState(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		mockRows      *sqlmock.Rows
		mockError     error
		expected      []byte
		expectedError error
	}{
		{
			name:     "existing record",
			key:      "uranai-app-storage:42",
			mockRows: sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`{"isLoggedIn":true}`)),
			expected: []byte(`{"isLoggedIn":true}`),
		},
		{
			name:          "missing record",
			key:           "uranai-app-storage:43",
			mockError:     sql.ErrNoRows,
			expectedError: repository.ErrNotFound,
		},
		{
			name:          "database error",
			key:           "uranai-app-storage:44",
			mockError:     errors.New("connection reset"),
			expectedError: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewStateRepo(db)

			query := "SELECT payload FROM app_states WHERE state_key = \\$1"

			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.key).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.key).WillReturnRows(tt.mockRows)
			}

			payload, err := repo.LoadState(context.Background(), tt.key)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, payload)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStateRepo_SaveState(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStateRepo(db)
	payload := []byte(`{"currentScreen":"home"}`)

	mock.ExpectExec("INSERT INTO app_states").
		WithArgs("k", payload).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.SaveState(context.Background(), "k", payload)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateRepo_DeleteState(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStateRepo(db)

	mock.ExpectExec("DELETE FROM app_states WHERE state_key = \\$1").
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.DeleteState(context.Background(), "k")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStateRepo_CleanOldStates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStateRepo(db)

	mock.ExpectExec("DELETE FROM app_states WHERE updated_at").
		WithArgs(60).
		WillReturnResult(sqlmock.NewResult(0, 10))

	n, err := repo.CleanOldStates(context.Background(), 60)

	assert.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
