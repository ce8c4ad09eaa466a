package domain

import "context"

// EmailQuota enforces the rolling daily cap on outbound emails. The quota is
// keyed by calendar date, so it resets implicitly at midnight.
type EmailQuota interface {
	// CanSend reports whether count emails may still be sent today and how
	// many remain. message explains a refusal.
	CanSend(ctx context.Context, count int) (allowed bool, remaining int, message string, err error)
	// Increment adds count to today's counter. The increment is atomic at the
	// storage layer and fails with ErrQuotaExceeded when it would push the
	// counter past the configured limit.
	Increment(ctx context.Context, count int) error
	// Cleanup purges counter rows older than the retention horizon.
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}
