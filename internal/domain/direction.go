package domain

import (
	"context"
	"time"
)

// Direction is an issuing department. Each direction owns its own set of
// certificate templates.
type Direction struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DirectionRepository defines the interface for direction storage.
type DirectionRepository interface {
	Create(ctx context.Context, d *Direction) error
	GetByID(ctx context.Context, id string) (*Direction, error)
	GetByCode(ctx context.Context, code string) (*Direction, error)
	ListActive(ctx context.Context) ([]*Direction, error)
}
