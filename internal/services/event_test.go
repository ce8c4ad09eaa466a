package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bulkcertificates/internal/domain"
)

func buildRosterSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func newEventFixture() (*fakeEventRepo, *fakeStudentRepo, domain.EventService) {
	events := &fakeEventRepo{byID: map[string]*domain.Event{}}
	students := &fakeStudentRepo{byID: map[string]*domain.Student{}}
	directions := &fakeDirectionRepo{byID: map[string]*domain.Direction{
		"dir-1": {ID: "dir-1", Code: "dtic", Name: "Dirección de Tecnología"},
	}}
	svc := NewEventService(events, students, directions, 5*time.Second)
	return events, students, svc
}

func validEvent() *domain.Event {
	return &domain.Event{
		DirectionID:   "dir-1",
		Name:          "Curso de Go",
		Modality:      domain.ModalityVirtual,
		Kind:          domain.EventKindCurso,
		DurationHours: 40,
		StartDate:     time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateEvent(t *testing.T) {
	events, _, svc := newEventFixture()

	event := validEvent()
	require.NoError(t, svc.CreateEvent(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.Contains(t, events.byID, event.ID)
	// Issue date defaults to the end date.
	assert.Equal(t, event.EndDate, event.IssueDate)
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *domain.Event)
	}{
		{"missing name", func(e *domain.Event) { e.Name = "" }},
		{"missing direction", func(e *domain.Event) { e.DirectionID = "" }},
		{"unknown modality", func(e *domain.Event) { e.Modality = "remoto" }},
		{"end before start", func(e *domain.Event) { e.EndDate = e.StartDate.AddDate(0, 0, -1) }},
		{"direction does not exist", func(e *domain.Event) { e.DirectionID = "dir-nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, svc := newEventFixture()
			event := validEvent()
			tt.mutate(event)
			err := svc.CreateEvent(context.Background(), event)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestGetEvent(t *testing.T) {
	events, students, svc := newEventFixture()
	event := validEvent()
	require.NoError(t, events.Create(context.Background(), event))
	students.byID["st-1"] = &domain.Student{ID: "st-1", EventID: event.ID, FullName: "Ana", Email: "ana@example.com"}

	got, roster, err := svc.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	require.Len(t, roster, 1)

	_, _, err = svc.GetEvent(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportRoster(t *testing.T) {
	events, students, svc := newEventFixture()
	event := validEvent()
	require.NoError(t, events.Create(context.Background(), event))

	upload := buildRosterSheet(t, [][]string{
		{"NOMBRES", "CORREO"},
		{"Ana Pérez", "ana@example.com"},
		{"Luis Gómez", "luis@example.com"},
		{"Sin Correo", ""},
	})

	created, warnings, err := svc.ImportRoster(context.Background(), event.ID, upload)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	require.Len(t, warnings, 1)
	assert.Len(t, students.byID, 2)
	for _, s := range created {
		assert.Equal(t, event.ID, s.EventID)
		assert.NotEmpty(t, s.ID)
	}
}

func TestImportRoster_BadSpreadsheet(t *testing.T) {
	events, _, svc := newEventFixture()
	event := validEvent()
	require.NoError(t, events.Create(context.Background(), event))

	_, _, err := svc.ImportRoster(context.Background(), event.ID, []byte("not xlsx"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImportRoster_DuplicateStudent(t *testing.T) {
	events, students, svc := newEventFixture()
	event := validEvent()
	require.NoError(t, events.Create(context.Background(), event))
	students.byID["st-1"] = &domain.Student{ID: "st-1", EventID: event.ID, FullName: "Ana", Email: "ana@example.com"}

	upload := buildRosterSheet(t, [][]string{
		{"NOMBRES", "CORREO"},
		{"Ana Pérez", "ana@example.com"},
	})
	_, _, err := svc.ImportRoster(context.Background(), event.ID, upload)
	require.ErrorIs(t, err, domain.ErrDuplicateStudent)
}

func TestImportRoster_UnknownEvent(t *testing.T) {
	_, _, svc := newEventFixture()
	_, _, err := svc.ImportRoster(context.Background(), "missing", []byte("irrelevant"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteStudent(t *testing.T) {
	events, students, svc := newEventFixture()
	event := validEvent()
	require.NoError(t, events.Create(context.Background(), event))
	students.byID["st-1"] = &domain.Student{ID: "st-1", EventID: event.ID}
	students.byID["st-2"] = &domain.Student{ID: "st-2", EventID: "other-event"}

	require.NoError(t, svc.DeleteStudent(context.Background(), event.ID, "st-1"))
	assert.NotContains(t, students.byID, "st-1")

	// A student of another event is invisible through this event.
	require.ErrorIs(t, svc.DeleteStudent(context.Background(), event.ID, "st-2"), domain.ErrNotFound)
	require.ErrorIs(t, svc.DeleteStudent(context.Background(), event.ID, "missing"), domain.ErrNotFound)
}
