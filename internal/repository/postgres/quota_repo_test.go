package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"bulkcertificates/internal/domain"

	"github.com/stretchr/testify/require"
)

func fixedLimit(n int) func() int {
	return func() int { return n }
}

func TestQuotaRepository_CanSend(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		limit         int
		count         int
		mock          func(mock sqlmock.Sqlmock)
		wantAllowed   bool
		wantRemaining int
	}{
		{
			name:  "fits within the remaining quota",
			limit: 400,
			count: 50,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT sent FROM email_quotas`).
					WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(300))
			},
			wantAllowed:   true,
			wantRemaining: 100,
		},
		{
			name:  "exact fit is allowed",
			limit: 400,
			count: 100,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT sent FROM email_quotas`).
					WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(300))
			},
			wantAllowed:   true,
			wantRemaining: 100,
		},
		{
			name:  "one over the cap is refused",
			limit: 400,
			count: 101,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT sent FROM email_quotas`).
					WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(300))
			},
			wantAllowed:   false,
			wantRemaining: 100,
		},
		{
			name:  "no row today means a full quota",
			limit: 400,
			count: 400,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT sent FROM email_quotas`).
					WillReturnRows(sqlmock.NewRows([]string{"sent"}))
			},
			wantAllowed:   true,
			wantRemaining: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.mock(mock)

			quota := NewQuotaRepository(db, fixedLimit(tt.limit))
			allowed, remaining, message, err := quota.CanSend(ctx, tt.count)
			require.NoError(t, err)
			require.Equal(t, tt.wantAllowed, allowed)
			require.Equal(t, tt.wantRemaining, remaining)
			if !tt.wantAllowed {
				require.NotEmpty(t, message)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestQuotaRepository_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("conditional upsert accepted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO email_quotas`).
			WithArgs(1, 400).
			WillReturnResult(sqlmock.NewResult(0, 1))

		quota := NewQuotaRepository(db, fixedLimit(400))
		require.NoError(t, quota.Increment(ctx, 1))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected means the cap was hit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO email_quotas`).
			WithArgs(1, 400).
			WillReturnResult(sqlmock.NewResult(0, 0))

		quota := NewQuotaRepository(db, fixedLimit(400))
		require.ErrorIs(t, quota.Increment(ctx, 1), domain.ErrQuotaExceeded)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count above the whole cap fails without touching the db", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		quota := NewQuotaRepository(db, fixedLimit(400))
		require.ErrorIs(t, quota.Increment(ctx, 401), domain.ErrQuotaExceeded)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuotaRepository_Cleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM email_quotas`).
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 12))

	quota := NewQuotaRepository(db, fixedLimit(400))
	removed, err := quota.Cleanup(context.Background(), 30)
	require.NoError(t, err)
	require.EqualValues(t, 12, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
