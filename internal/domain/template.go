package domain

import (
	"context"
	"time"
)

// BaseTemplate is the default docx skeleton for a direction. At most one base
// template per direction is active at any time; the activation write path
// deactivates siblings in the same transaction.
type BaseTemplate struct {
	ID          string    `json:"id"`
	DirectionID string    `json:"direction_id"`
	Name        string    `json:"name"`
	FilePath    string    `json:"file_path"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TemplateVariant is an alternate skin of a base template, selectable per
// event. Variants are independently active/inactive.
type TemplateVariant struct {
	ID         string    `json:"id"`
	BaseID     string    `json:"base_id"`
	Name       string    `json:"name"`
	FilePath   string    `json:"file_path"`
	Ordering   int       `json:"ordering"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TemplateRepository defines the interface for template storage.
type TemplateRepository interface {
	CreateBase(ctx context.Context, t *BaseTemplate) error
	GetBaseByID(ctx context.Context, id string) (*BaseTemplate, error)
	// GetActiveBaseByDirection returns the single active base template for a
	// direction, or ErrNotFound.
	GetActiveBaseByDirection(ctx context.Context, directionID string) (*BaseTemplate, error)
	// ActivateBase marks the template active and deactivates every sibling of
	// the same direction transactionally.
	ActivateBase(ctx context.Context, id string) error
	CreateVariant(ctx context.Context, v *TemplateVariant) error
	GetVariantByID(ctx context.Context, id string) (*TemplateVariant, error)
	ListVariantsByBase(ctx context.Context, baseID string) ([]*TemplateVariant, error)
}

// TemplateService resolves and manages certificate templates.
type TemplateService interface {
	// ResolveForEvent returns the storage-relative path of the template to
	// use for the event: the event's active variant if it has a file, else
	// the direction's active base template, else *TemplateNotFoundError.
	ResolveForEvent(ctx context.Context, event *Event) (string, error)
	UploadBase(ctx context.Context, directionID, name, description string, file []byte) (*BaseTemplate, error)
	UploadVariant(ctx context.Context, baseID, name string, ordering int, file []byte) (*TemplateVariant, error)
	ActivateBase(ctx context.Context, id string) error
	ListVariants(ctx context.Context, baseID string) ([]*TemplateVariant, error)
}

// DocumentEngine substitutes {{PLACEHOLDER}} tokens in a docx template.
// It returns the rendered document and one warning per unmatched placeholder;
// missing keys never fail the operation.
type DocumentEngine interface {
	Substitute(template []byte, vars map[string]string) (rendered []byte, warnings []string, err error)
}
