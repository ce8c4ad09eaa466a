package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bulkcertificates/internal/domain"
)

type directionRepository struct {
	DB *sql.DB
}

func NewDirectionRepository(db *sql.DB) domain.DirectionRepository {
	return &directionRepository{
		DB: db,
	}
}

func (r *directionRepository) Create(ctx context.Context, d *domain.Direction) error {
	query := `
		INSERT INTO directions (code, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	code := strings.ToLower(strings.TrimSpace(d.Code))
	return r.DB.QueryRowContext(ctx, query, code, d.Name, d.Description, d.Active, d.CreatedAt, d.UpdatedAt).
		Scan(&d.ID)
}

func (r *directionRepository) GetByID(ctx context.Context, id string) (*domain.Direction, error) {
	query := `
		SELECT id, code, name, description, active, created_at, updated_at
		FROM directions
		WHERE id = $1
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

func (r *directionRepository) GetByCode(ctx context.Context, code string) (*domain.Direction, error) {
	query := `
		SELECT id, code, name, description, active, created_at, updated_at
		FROM directions
		WHERE code = $1
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(code))))
}

func (r *directionRepository) scanOne(row *sql.Row) (*domain.Direction, error) {
	d := &domain.Direction{}
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Description, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *directionRepository) ListActive(ctx context.Context) ([]*domain.Direction, error) {
	query := `
		SELECT id, code, name, description, active, created_at, updated_at
		FROM directions
		WHERE active = TRUE
		ORDER BY name ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	directions := make([]*domain.Direction, 0)
	for rows.Next() {
		d := &domain.Direction{}
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.Description, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		directions = append(directions, d)
	}
	return directions, rows.Err()
}
