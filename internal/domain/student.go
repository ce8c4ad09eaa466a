package domain

import (
	"context"
	"time"
)

// Student is a certificate recipient, imported from a roster. The pair
// (event, email) is unique; deleting a student cascades to its certificate.
type Student struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentRepository defines the interface for student storage.
type StudentRepository interface {
	// BulkCreate inserts all students in one transaction. A duplicate
	// (event, email) pair fails the whole insert with ErrDuplicateStudent.
	BulkCreate(ctx context.Context, students []*Student) error
	GetByID(ctx context.Context, id string) (*Student, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Student, error)
	Delete(ctx context.Context, id string) error
}
