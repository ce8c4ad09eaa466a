package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"bulkcertificates/internal/domain"
)

type studentRepository struct {
	DB *sql.DB
}

func NewStudentRepository(db *sql.DB) domain.StudentRepository {
	return &studentRepository{
		DB: db,
	}
}

// BulkCreate inserts the whole roster in one transaction; a single duplicate
// (event, email) rolls back everything so a re-upload starts clean.
func (r *studentRepository) BulkCreate(ctx context.Context, students []*domain.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO students (event_id, full_name, email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, s := range students {
		err := tx.QueryRowContext(ctx, query, s.EventID, s.FullName, s.Email, s.CreatedAt).Scan(&s.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return domain.ErrDuplicateStudent
			}
			return err
		}
	}
	return tx.Commit()
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	query := `
		SELECT id, event_id, full_name, email, created_at
		FROM students
		WHERE id = $1
	`
	s := &domain.Student{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.EventID, &s.FullName, &s.Email, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *studentRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Student, error) {
	query := `
		SELECT id, event_id, full_name, email, created_at
		FROM students
		WHERE event_id = $1
		ORDER BY full_name ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	students := make([]*domain.Student, 0)
	for rows.Next() {
		s := &domain.Student{}
		if err := rows.Scan(&s.ID, &s.EventID, &s.FullName, &s.Email, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *studentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
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
