package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bulkcertificates/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{
		DB: db,
	}
}

func (r *templateRepository) CreateBase(ctx context.Context, t *domain.BaseTemplate) error {
	query := `
		INSERT INTO base_templates (direction_id, name, file_path, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		t.DirectionID, t.Name, t.FilePath, t.Description, t.Active, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *templateRepository) GetBaseByID(ctx context.Context, id string) (*domain.BaseTemplate, error) {
	query := `
		SELECT id, direction_id, name, file_path, description, active, created_at, updated_at
		FROM base_templates
		WHERE id = $1
	`
	return r.scanBase(r.DB.QueryRowContext(ctx, query, id))
}

func (r *templateRepository) GetActiveBaseByDirection(ctx context.Context, directionID string) (*domain.BaseTemplate, error) {
	query := `
		SELECT id, direction_id, name, file_path, description, active, created_at, updated_at
		FROM base_templates
		WHERE direction_id = $1 AND active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.scanBase(r.DB.QueryRowContext(ctx, query, directionID))
}

func (r *templateRepository) scanBase(row *sql.Row) (*domain.BaseTemplate, error) {
	t := &domain.BaseTemplate{}
	err := row.Scan(&t.ID, &t.DirectionID, &t.Name, &t.FilePath, &t.Description, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ActivateBase activates one template and deactivates its direction siblings
// in the same transaction, preserving the single-active invariant.
func (r *templateRepository) ActivateBase(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var directionID string
	err = tx.QueryRowContext(ctx, `SELECT direction_id FROM base_templates WHERE id = $1`, id).
		Scan(&directionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE base_templates SET active = FALSE, updated_at = NOW()
		WHERE direction_id = $1 AND id <> $2 AND active = TRUE
	`, directionID, id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE base_templates SET active = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *templateRepository) CreateVariant(ctx context.Context, v *domain.TemplateVariant) error {
	query := `
		INSERT INTO template_variants (base_id, name, file_path, ordering, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		v.BaseID, v.Name, v.FilePath, v.Ordering, v.Active, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
}

func (r *templateRepository) GetVariantByID(ctx context.Context, id string) (*domain.TemplateVariant, error) {
	query := `
		SELECT id, base_id, name, file_path, ordering, active, created_at, updated_at
		FROM template_variants
		WHERE id = $1
	`
	v := &domain.TemplateVariant{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.BaseID, &v.Name, &v.FilePath, &v.Ordering, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *templateRepository) ListVariantsByBase(ctx context.Context, baseID string) ([]*domain.TemplateVariant, error) {
	query := `
		SELECT id, base_id, name, file_path, ordering, active, created_at, updated_at
		FROM template_variants
		WHERE base_id = $1
		ORDER BY ordering ASC, name ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, baseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	variants := make([]*domain.TemplateVariant, 0)
	for rows.Next() {
		v := &domain.TemplateVariant{}
		if err := rows.Scan(
			&v.ID, &v.BaseID, &v.Name, &v.FilePath, &v.Ordering, &v.Active, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}
