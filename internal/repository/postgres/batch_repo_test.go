package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"bulkcertificates/internal/domain"

	"github.com/stretchr/testify/require"
)

func batchRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "event_id", "total", "processed", "succeeded", "failed", "state",
		"started_at", "finished_at", "created_at", "updated_at",
	}).AddRow("batch-1", "ev-1", 5, 0, 0, 0, "pending", now, nil, now, now)
}

func TestBatchRepository_Reset(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO batches`).
		WithArgs("ev-1", 5, now).
		WillReturnRows(batchRows(now))

	repo := NewBatchRepository(db)
	batch, err := repo.Reset(context.Background(), "ev-1", 5, now)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatePending, batch.State)
	require.Equal(t, 5, batch.Total)
	require.Zero(t, batch.Processed)
	require.Nil(t, batch.FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepository_Update(t *testing.T) {
	tests := []struct {
		name         string
		batch        *domain.Batch
		wantFinished bool
	}{
		{
			name: "processing run leaves finished_at untouched",
			batch: &domain.Batch{
				EventID: "ev-1", Total: 5, Processed: 3, Succeeded: 3, Failed: 0,
				State: domain.BatchStateProcessing,
			},
		},
		{
			name: "terminal partial run stamps finished_at",
			batch: &domain.Batch{
				EventID: "ev-1", Total: 5, Processed: 5, Succeeded: 3, Failed: 2,
				State: domain.BatchStatePartial,
			},
			wantFinished: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			finishedArg := sqlmock.AnyArg()
			mock.ExpectExec(`UPDATE batches SET`).
				WithArgs(tt.batch.EventID, tt.batch.Total, tt.batch.Processed,
					tt.batch.Succeeded, tt.batch.Failed, tt.batch.State, finishedArg).
				WillReturnResult(sqlmock.NewResult(0, 1))

			repo := NewBatchRepository(db)
			require.NoError(t, repo.Update(context.Background(), tt.batch))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBatchRepository_GetByEventID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM batches`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewBatchRepository(db)
	_, err = repo.GetByEventID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
