package domain

import (
	"context"
	"time"
)

// Campaign states.
const (
	CampaignStateDraft      = "draft"
	CampaignStateProcessing = "processing"
	CampaignStateCompleted  = "completed"
)

// Campaign recipient states.
const (
	RecipientStatePending = "pending"
	RecipientStateSent    = "sent"
	RecipientStateFailed  = "failed"
)

// Campaign is a bulk HTML mailing to all students of an event, separate from
// certificate delivery.
type Campaign struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	Name       string     `json:"name"`
	Subject    string     `json:"subject"`
	Message    string     `json:"message"`
	State      string     `json:"state"`
	Total      int        `json:"total"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CampaignRecipient tracks one recipient of a campaign.
type CampaignRecipient struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	State        string     `json:"state"`
	ErrorMessage string     `json:"error_message"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}

// CampaignRepository defines the interface for campaign storage.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign, recipients []*CampaignRecipient) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	ListRecipients(ctx context.Context, campaignID string) ([]*CampaignRecipient, error)
	ListRecipientsByState(ctx context.Context, campaignID, state string) ([]*CampaignRecipient, error)
	MarkRecipientSent(ctx context.Context, recipientID string, sentAt time.Time) error
	MarkRecipientFailed(ctx context.Context, recipientID, errorMessage string) error
	ResetRecipient(ctx context.Context, recipientID string) error
	// UpdateStats recomputes sent/failed counters from recipient rows and
	// stores the campaign state.
	UpdateStats(ctx context.Context, campaignID, state string, sentAt *time.Time) error
}

// CampaignService creates and sends email campaigns.
type CampaignService interface {
	CreateFromEvent(ctx context.Context, eventID, name, subject, message string) (*Campaign, error)
	// Get returns the campaign with its per-recipient delivery states.
	Get(ctx context.Context, campaignID string) (*Campaign, []*CampaignRecipient, error)
	// Send delivers the campaign to every pending recipient, inlining
	// embedded images as cid: MIME parts. Per-recipient failures do not abort
	// the run.
	Send(ctx context.Context, campaignID string) (sent, failed int, err error)
	RetryFailed(ctx context.Context, campaignID string) (sent, failed int, err error)
}
