package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bulkcertificates/internal/domain"
)

type campaignRepository struct {
	DB *sql.DB
}

func NewCampaignRepository(db *sql.DB) domain.CampaignRepository {
	return &campaignRepository{
		DB: db,
	}
}

// Create inserts the campaign and its recipient snapshot in one transaction.
// Recipients are frozen at creation time; later roster edits do not affect a
// draft campaign.
func (r *campaignRepository) Create(ctx context.Context, c *domain.Campaign, recipients []*domain.CampaignRecipient) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO campaigns (event_id, name, subject, message, state, total, sent, failed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8)
		RETURNING id
	`, c.EventID, c.Name, c.Subject, c.Message, c.State, c.Total, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return err
	}

	for _, rec := range recipients {
		rec.CampaignID = c.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO campaign_recipients (campaign_id, full_name, email, state, error_message)
			VALUES ($1, $2, $3, $4, '')
			RETURNING id
		`, c.ID, rec.FullName, rec.Email, rec.State).Scan(&rec.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `
		SELECT id, event_id, name, subject, message, state, total, sent, failed, sent_at, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`
	c := &domain.Campaign{}
	var sentAtNull sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.EventID, &c.Name, &c.Subject, &c.Message, &c.State,
		&c.Total, &c.Sent, &c.Failed, &sentAtNull, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if sentAtNull.Valid {
		c.SentAt = &sentAtNull.Time
	}
	return c, nil
}

func (r *campaignRepository) ListRecipients(ctx context.Context, campaignID string) ([]*domain.CampaignRecipient, error) {
	query := `
		SELECT id, campaign_id, full_name, email, state, error_message, sent_at
		FROM campaign_recipients
		WHERE campaign_id = $1
		ORDER BY full_name ASC
	`
	return r.listRecipients(ctx, query, campaignID)
}

func (r *campaignRepository) ListRecipientsByState(ctx context.Context, campaignID, state string) ([]*domain.CampaignRecipient, error) {
	query := `
		SELECT id, campaign_id, full_name, email, state, error_message, sent_at
		FROM campaign_recipients
		WHERE campaign_id = $1 AND state = $2
		ORDER BY full_name ASC
	`
	return r.listRecipients(ctx, query, campaignID, state)
}

func (r *campaignRepository) listRecipients(ctx context.Context, query string, args ...any) ([]*domain.CampaignRecipient, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recipients := make([]*domain.CampaignRecipient, 0)
	for rows.Next() {
		rec := &domain.CampaignRecipient{}
		var sentAtNull sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.FullName, &rec.Email, &rec.State, &rec.ErrorMessage, &sentAtNull,
		); err != nil {
			return nil, err
		}
		if sentAtNull.Valid {
			rec.SentAt = &sentAtNull.Time
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *campaignRepository) MarkRecipientSent(ctx context.Context, recipientID string, sentAt time.Time) error {
	return r.exec(ctx, `
		UPDATE campaign_recipients SET state = 'sent', error_message = '', sent_at = $2
		WHERE id = $1
	`, recipientID, sentAt)
}

func (r *campaignRepository) MarkRecipientFailed(ctx context.Context, recipientID, errorMessage string) error {
	return r.exec(ctx, `
		UPDATE campaign_recipients SET state = 'failed', error_message = $2
		WHERE id = $1
	`, recipientID, errorMessage)
}

func (r *campaignRepository) ResetRecipient(ctx context.Context, recipientID string) error {
	return r.exec(ctx, `
		UPDATE campaign_recipients SET state = 'pending', error_message = '', sent_at = NULL
		WHERE id = $1
	`, recipientID)
}

func (r *campaignRepository) UpdateStats(ctx context.Context, campaignID, state string, sentAt *time.Time) error {
	return r.exec(ctx, `
		UPDATE campaigns SET
			sent = (SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = $1 AND state = 'sent'),
			failed = (SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = $1 AND state = 'failed'),
			state = $2,
			sent_at = COALESCE(sent_at, $3),
			updated_at = NOW()
		WHERE id = $1
	`, campaignID, state, sentAt)
}

func (r *campaignRepository) exec(ctx context.Context, query string, args ...any) error {
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
