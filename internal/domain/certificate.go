package domain

import (
	"context"
	"time"
)

// Certificate lifecycle states.
//
//	pending → generating → completed → sending_email → sent
//	                   ↘ failed            ↘ failed (retries exhausted)
const (
	CertStatePending      = "pending"
	CertStateGenerating   = "generating"
	CertStateCompleted    = "completed"
	CertStateFailed       = "failed"
	CertStateSendingEmail = "sending_email"
	CertStateSent         = "sent"
)

// Certificate tracks generation and delivery of one recipient's document.
// At most one certificate exists per (event, student) pair; re-generation
// resets the existing row instead of creating a new one.
type Certificate struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	StudentID    string     `json:"student_id"`
	DocxPath     *string    `json:"docx_path,omitempty"`
	PDFPath      *string    `json:"pdf_path,omitempty"`
	State        string     `json:"state"`
	Emailed      bool       `json:"emailed"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	SendAttempts int        `json:"send_attempts"`
	ErrorMessage string     `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CertificateCounts is the per-event aggregate used for batch recomputation.
type CertificateCounts struct {
	Total     int
	Succeeded int // completed or sent
	Failed    int
}

// CertificateRepository defines the interface for certificate storage.
type CertificateRepository interface {
	// UpsertPending creates the certificate for (event, student) or, if it
	// already exists, resets it to pending with a cleared error message.
	UpsertPending(ctx context.Context, eventID, studentID string) (*Certificate, error)
	GetByID(ctx context.Context, id string) (*Certificate, error)
	ListByEventAndState(ctx context.Context, eventID, state string) ([]*Certificate, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Certificate, error)
	// CountsByEvent aggregates certificate states for batch recomputation.
	CountsByEvent(ctx context.Context, eventID string) (*CertificateCounts, error)

	MarkGenerating(ctx context.Context, id string) error
	// MarkCompleted stores both file paths, the completed state and a cleared
	// error message in a single update.
	MarkCompleted(ctx context.Context, id, docxPath, pdfPath string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	MarkSendingEmail(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	RecordSendFailure(ctx context.Context, id, errorMessage string) error
}

// CertificatePipeline drives certificates through their lifecycle.
type CertificatePipeline interface {
	// StartBatchGeneration upserts a pending certificate per student and
	// enqueues one generation task each.
	StartBatchGeneration(ctx context.Context, eventID string) (*Batch, error)
	// StartBatchSend enqueues delivery of every completed certificate after a
	// fail-fast check against the daily email quota.
	StartBatchSend(ctx context.Context, eventID string) (int, error)
	// Regenerate resets one certificate to pending and re-enqueues it.
	Regenerate(ctx context.Context, certificateID string) error
	// GenerateCertificate runs the generation step for one certificate. It is
	// normally invoked by a worker task.
	GenerateCertificate(ctx context.Context, certificateID string) error
	// SendCertificate runs the delivery step for one certificate.
	SendCertificate(ctx context.Context, certificateID string) error
	BatchStatus(ctx context.Context, eventID string) (*BatchStatus, error)
}
