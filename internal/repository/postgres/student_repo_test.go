package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"bulkcertificates/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestStudentRepository_BulkCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	students := []*domain.Student{
		{EventID: "ev-1", FullName: "Ana Pérez", Email: "ana@example.com", CreatedAt: now},
		{EventID: "ev-1", FullName: "Luis Gómez", Email: "luis@example.com", CreatedAt: now},
	}

	t.Run("inserts all rows in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO students`).
			WithArgs("ev-1", "Ana Pérez", "ana@example.com", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("st-1"))
		mock.ExpectQuery(`INSERT INTO students`).
			WithArgs("ev-1", "Luis Gómez", "luis@example.com", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("st-2"))
		mock.ExpectCommit()

		repo := NewStudentRepository(db)
		require.NoError(t, repo.BulkCreate(ctx, students))
		require.Equal(t, "st-1", students[0].ID)
		require.Equal(t, "st-2", students[1].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email rolls back the whole roster", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO students`).
			WithArgs("ev-1", "Ana Pérez", "ana@example.com", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("st-1"))
		mock.ExpectQuery(`INSERT INTO students`).
			WithArgs("ev-1", "Luis Gómez", "luis@example.com", now).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		repo := NewStudentRepository(db)
		require.ErrorIs(t, repo.BulkCreate(ctx, students), domain.ErrDuplicateStudent)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty roster is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewStudentRepository(db)
		require.NoError(t, repo.BulkCreate(ctx, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM students`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewStudentRepository(db)
	require.ErrorIs(t, repo.Delete(context.Background(), "missing"), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
