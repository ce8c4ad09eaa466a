package domain

import (
	"context"
	"time"
)

// Batch states, derived from certificate rows and never hand-edited.
const (
	BatchStatePending    = "pending"
	BatchStateProcessing = "processing"
	BatchStateCompleted  = "completed"
	BatchStateFailed     = "failed"
	BatchStatePartial    = "partial"
)

// Batch aggregates progress of one event's certificate run. One batch exists
// per event.
type Batch struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	State      string     `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Percent returns batch progress 0-100.
func (b *Batch) Percent() int {
	if b.Total == 0 {
		return 0
	}
	return b.Processed * 100 / b.Total
}

// DeriveState computes the batch state from its counters.
func (b *Batch) DeriveState() string {
	switch {
	case b.Processed == 0:
		return BatchStatePending
	case b.Processed < b.Total:
		return BatchStateProcessing
	case b.Failed == 0:
		return BatchStateCompleted
	case b.Succeeded == 0:
		return BatchStateFailed
	default:
		return BatchStatePartial
	}
}

// Terminal reports whether the state ends a batch run.
func (b *Batch) Terminal() bool {
	switch b.State {
	case BatchStateCompleted, BatchStateFailed, BatchStatePartial:
		return true
	}
	return false
}

// BatchStatus is the polling view of a batch.
type BatchStatus struct {
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Percent   int    `json:"percent"`
	State     string `json:"state"`
}

// BatchRepository defines the interface for batch storage.
type BatchRepository interface {
	// Reset creates the batch for the event or resets an existing one to a
	// fresh pending run with the given total and start time.
	Reset(ctx context.Context, eventID string, total int, startedAt time.Time) (*Batch, error)
	GetByEventID(ctx context.Context, eventID string) (*Batch, error)
	SetState(ctx context.Context, eventID, state string) error
	// Update persists recomputed counters and state. finished_at is only
	// written the first time a terminal state is reached.
	Update(ctx context.Context, b *Batch) error
}
