package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bulkcertificates/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (direction_id, variant_id, name, modality, kind, kind_detail,
			duration_hours, start_date, end_date, issue_date, program_objective, program_content,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.DirectionID, e.VariantID, e.Name, e.Modality, e.Kind, e.KindDetail,
		e.DurationHours, e.StartDate, e.EndDate, e.IssueDate, e.ProgramObjective, e.ProgramContent,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, direction_id, variant_id, name, modality, kind, kind_detail,
			duration_hours, start_date, end_date, issue_date, program_objective, program_content,
			created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var variantNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.DirectionID, &variantNull, &e.Name, &e.Modality, &e.Kind, &e.KindDetail,
		&e.DurationHours, &e.StartDate, &e.EndDate, &e.IssueDate, &e.ProgramObjective, &e.ProgramContent,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if variantNull.Valid {
		e.VariantID = &variantNull.String
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT id, direction_id, variant_id, name, modality, kind, kind_detail,
			duration_hours, start_date, end_date, issue_date, program_objective, program_content,
			created_at, updated_at
		FROM events
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e := &domain.Event{}
		var variantNull sql.NullString
		if err := rows.Scan(
			&e.ID, &e.DirectionID, &variantNull, &e.Name, &e.Modality, &e.Kind, &e.KindDetail,
			&e.DurationHours, &e.StartDate, &e.EndDate, &e.IssueDate, &e.ProgramObjective, &e.ProgramContent,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if variantNull.Valid {
			e.VariantID = &variantNull.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
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
