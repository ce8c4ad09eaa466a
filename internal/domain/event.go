package domain

import (
	"context"
	"time"
)

// Event modality values.
const (
	ModalityVirtual    = "virtual"
	ModalityPresencial = "presencial"
	ModalityHibrido    = "hibrido"
)

// Event kind values.
const (
	EventKindCurso        = "curso"
	EventKindTaller       = "taller"
	EventKindSeminario    = "seminario"
	EventKindConferencia  = "conferencia"
	EventKindCapacitacion = "capacitacion"
	EventKindDiplomado    = "diplomado"
	EventKindOtro         = "otro"
)

// Event is a unit of training for which certificates are generated. Its
// fields feed the template variables of every certificate in the batch.
type Event struct {
	ID               string    `json:"id"`
	DirectionID      string    `json:"direction_id"`
	VariantID        *string   `json:"variant_id,omitempty"`
	Name             string    `json:"name"`
	Modality         string    `json:"modality"`
	Kind             string    `json:"kind"`
	KindDetail       string    `json:"kind_detail"`
	DurationHours    int       `json:"duration_hours"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	IssueDate        time.Time `json:"issue_date"`
	ProgramObjective string    `json:"program_objective"`
	ProgramContent   string    `json:"program_content"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by
// the repository on create.
func NewEvent(directionID, name, modality, kind string, createdAt time.Time) *Event {
	return &Event{
		DirectionID: directionID,
		Name:        name,
		Modality:    modality,
		Kind:        kind,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService covers event creation and roster ingestion.
type EventService interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, []*Student, error)
	// ImportRoster parses an uploaded roster and bulk-registers its rows as
	// students of the event. Returns the created students and the parser's
	// soft warnings.
	ImportRoster(ctx context.Context, eventID string, roster []byte) ([]*Student, []string, error)
	DeleteStudent(ctx context.Context, eventID, studentID string) error
}
