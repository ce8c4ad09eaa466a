package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bulkcertificates/internal/domain"
)

type quotaRepository struct {
	DB *sql.DB
	// limit is read per call so the operator can raise the cap without a
	// restart.
	limit func() int
}

func NewQuotaRepository(db *sql.DB, limit func() int) domain.EmailQuota {
	return &quotaRepository{
		DB:    db,
		limit: limit,
	}
}

func (r *quotaRepository) CanSend(ctx context.Context, count int) (bool, int, string, error) {
	var sent int
	err := r.DB.QueryRowContext(ctx, `
		SELECT sent FROM email_quotas WHERE day = CURRENT_DATE
	`).Scan(&sent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, 0, "", err
	}

	limit := r.limit()
	remaining := limit - sent
	if remaining < 0 {
		remaining = 0
	}
	if count > remaining {
		msg := fmt.Sprintf("daily email quota reached: %d of %d used, %d remaining, %d requested",
			sent, limit, remaining, count)
		return false, remaining, msg, nil
	}
	return true, remaining, "", nil
}

// Increment is a single conditional upsert: the WHERE clause on the update arm
// rejects any increment that would pass the cap, so concurrent senders cannot
// overshoot it.
func (r *quotaRepository) Increment(ctx context.Context, count int) error {
	limit := r.limit()
	if count > limit {
		return domain.ErrQuotaExceeded
	}
	result, err := r.DB.ExecContext(ctx, `
		INSERT INTO email_quotas (day, sent)
		VALUES (CURRENT_DATE, $1)
		ON CONFLICT (day) DO UPDATE SET sent = email_quotas.sent + $1
		WHERE email_quotas.sent + $1 <= $2
	`, count, limit)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrQuotaExceeded
	}
	return nil
}

func (r *quotaRepository) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		DELETE FROM email_quotas
		WHERE day < CURRENT_DATE - $1::int
	`, retentionDays)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
