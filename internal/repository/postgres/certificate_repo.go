package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bulkcertificates/internal/domain"
)

type certificateRepository struct {
	DB *sql.DB
}

func NewCertificateRepository(db *sql.DB) domain.CertificateRepository {
	return &certificateRepository{
		DB: db,
	}
}

const certificateColumns = `id, event_id, student_id, docx_path, pdf_path, state,
	emailed, sent_at, send_attempts, error_message, created_at, updated_at`

// UpsertPending creates or resets the one certificate row per (event, student).
// A reset keeps the row identity but clears artifacts, state and error.
func (r *certificateRepository) UpsertPending(ctx context.Context, eventID, studentID string) (*domain.Certificate, error) {
	query := `
		INSERT INTO certificates (event_id, student_id, state, emailed, send_attempts, error_message, created_at, updated_at)
		VALUES ($1, $2, 'pending', FALSE, 0, '', NOW(), NOW())
		ON CONFLICT (event_id, student_id) DO UPDATE SET
			state = 'pending',
			docx_path = NULL,
			pdf_path = NULL,
			error_message = '',
			updated_at = NOW()
		RETURNING ` + certificateColumns
	return r.scanOne(r.DB.QueryRowContext(ctx, query, eventID, studentID))
}

func (r *certificateRepository) GetByID(ctx context.Context, id string) (*domain.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *certificateRepository) scanOne(row *sql.Row) (*domain.Certificate, error) {
	c := &domain.Certificate{}
	var docxNull, pdfNull sql.NullString
	var sentAtNull sql.NullTime
	err := row.Scan(
		&c.ID, &c.EventID, &c.StudentID, &docxNull, &pdfNull, &c.State,
		&c.Emailed, &sentAtNull, &c.SendAttempts, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if docxNull.Valid {
		c.DocxPath = &docxNull.String
	}
	if pdfNull.Valid {
		c.PDFPath = &pdfNull.String
	}
	if sentAtNull.Valid {
		c.SentAt = &sentAtNull.Time
	}
	return c, nil
}

func (r *certificateRepository) ListByEventAndState(ctx context.Context, eventID, state string) ([]*domain.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE event_id = $1 AND state = $2
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, eventID, state)
}

func (r *certificateRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, eventID)
}

func (r *certificateRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Certificate, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	certs := make([]*domain.Certificate, 0)
	for rows.Next() {
		c := &domain.Certificate{}
		var docxNull, pdfNull sql.NullString
		var sentAtNull sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.EventID, &c.StudentID, &docxNull, &pdfNull, &c.State,
			&c.Emailed, &sentAtNull, &c.SendAttempts, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if docxNull.Valid {
			c.DocxPath = &docxNull.String
		}
		if pdfNull.Valid {
			c.PDFPath = &pdfNull.String
		}
		if sentAtNull.Valid {
			c.SentAt = &sentAtNull.Time
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

// CountsByEvent aggregates in one round trip; sent certificates count as
// succeeded because delivery implies successful generation.
func (r *certificateRepository) CountsByEvent(ctx context.Context, eventID string) (*domain.CertificateCounts, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE state IN ('completed', 'sending_email', 'sent')),
			COUNT(*) FILTER (WHERE state = 'failed')
		FROM certificates
		WHERE event_id = $1
	`
	counts := &domain.CertificateCounts{}
	err := r.DB.QueryRowContext(ctx, query, eventID).
		Scan(&counts.Total, &counts.Succeeded, &counts.Failed)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *certificateRepository) MarkGenerating(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE certificates SET state = 'generating', updated_at = NOW()
		WHERE id = $1
	`, id)
}

func (r *certificateRepository) MarkCompleted(ctx context.Context, id, docxPath, pdfPath string) error {
	return r.exec(ctx, `
		UPDATE certificates SET state = 'completed', docx_path = $2, pdf_path = $3,
			error_message = '', updated_at = NOW()
		WHERE id = $1
	`, id, docxPath, pdfPath)
}

func (r *certificateRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return r.exec(ctx, `
		UPDATE certificates SET state = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1
	`, id, errorMessage)
}

func (r *certificateRepository) MarkSendingEmail(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE certificates SET state = 'sending_email', updated_at = NOW()
		WHERE id = $1
	`, id)
}

// MarkSent records delivery. The successful attempt counts toward
// send_attempts too, so the counter always reads total attempts made.
func (r *certificateRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.exec(ctx, `
		UPDATE certificates SET state = 'sent', emailed = TRUE, sent_at = $2,
			send_attempts = send_attempts + 1, error_message = '', updated_at = NOW()
		WHERE id = $1
	`, id, sentAt)
}

func (r *certificateRepository) RecordSendFailure(ctx context.Context, id, errorMessage string) error {
	return r.exec(ctx, `
		UPDATE certificates SET send_attempts = send_attempts + 1, error_message = $2, updated_at = NOW()
		WHERE id = $1
	`, id, errorMessage)
}

func (r *certificateRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
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
