package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bulkcertificates/internal/domain"
)

type batchRepository struct {
	DB *sql.DB
}

func NewBatchRepository(db *sql.DB) domain.BatchRepository {
	return &batchRepository{
		DB: db,
	}
}

const batchColumns = `id, event_id, total, processed, succeeded, failed, state,
	started_at, finished_at, created_at, updated_at`

// Reset starts a fresh run for the event, reusing the existing batch row when
// one exists. finished_at is cleared so a re-run terminates cleanly.
func (r *batchRepository) Reset(ctx context.Context, eventID string, total int, startedAt time.Time) (*domain.Batch, error) {
	query := `
		INSERT INTO batches (event_id, total, processed, succeeded, failed, state, started_at, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, 'pending', $3, NOW(), NOW())
		ON CONFLICT (event_id) DO UPDATE SET
			total = $2,
			processed = 0,
			succeeded = 0,
			failed = 0,
			state = 'pending',
			started_at = $3,
			finished_at = NULL,
			updated_at = NOW()
		RETURNING ` + batchColumns
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, total, startedAt))
}

func (r *batchRepository) GetByEventID(ctx context.Context, eventID string) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE event_id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID))
}

func (r *batchRepository) scanOne(row *sql.Row) (*domain.Batch, error) {
	b := &domain.Batch{}
	var startedNull, finishedNull sql.NullTime
	err := row.Scan(
		&b.ID, &b.EventID, &b.Total, &b.Processed, &b.Succeeded, &b.Failed, &b.State,
		&startedNull, &finishedNull, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if startedNull.Valid {
		b.StartedAt = &startedNull.Time
	}
	if finishedNull.Valid {
		b.FinishedAt = &finishedNull.Time
	}
	return b, nil
}

func (r *batchRepository) SetState(ctx context.Context, eventID, state string) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE batches SET state = $2, updated_at = NOW()
		WHERE event_id = $1
	`, eventID, state)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update persists recomputed counters. COALESCE keeps the first terminal
// timestamp: once finished_at is set it is never moved by later recomputes.
func (r *batchRepository) Update(ctx context.Context, b *domain.Batch) error {
	query := `
		UPDATE batches SET
			total = $2,
			processed = $3,
			succeeded = $4,
			failed = $5,
			state = $6,
			finished_at = COALESCE(finished_at, $7),
			updated_at = NOW()
		WHERE event_id = $1
	`
	var finishedAt *time.Time
	if b.Terminal() {
		finishedAt = b.FinishedAt
		if finishedAt == nil {
			now := time.Now()
			finishedAt = &now
		}
	}
	result, err := r.DB.ExecContext(ctx, query,
		b.EventID, b.Total, b.Processed, b.Succeeded, b.Failed, b.State, finishedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
