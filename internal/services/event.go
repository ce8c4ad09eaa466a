package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bulkcertificates/internal/domain"
	"bulkcertificates/internal/roster"
)

type eventService struct {
	eventRepo      domain.EventRepository
	studentRepo    domain.StudentRepository
	directionRepo  domain.DirectionRepository
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	studentRepo domain.StudentRepository,
	directionRepo domain.DirectionRepository,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		studentRepo:    studentRepo,
		directionRepo:  directionRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrInvalidInput)
	}
	if event.DirectionID == "" {
		return fmt.Errorf("%w: event direction is required", domain.ErrInvalidInput)
	}
	switch event.Modality {
	case domain.ModalityVirtual, domain.ModalityPresencial, domain.ModalityHibrido:
	default:
		return fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, event.Modality)
	}
	if event.EndDate.Before(event.StartDate) {
		return fmt.Errorf("%w: end date before start date", domain.ErrInvalidInput)
	}
	if _, err := s.directionRepo.GetByID(ctx, event.DirectionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: direction does not exist", domain.ErrInvalidInput)
		}
		return fmt.Errorf("get direction: %w", err)
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.IssueDate.IsZero() {
		event.IssueDate = event.EndDate
	}
	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, []*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	students, err := s.studentRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("list students: %w", err)
	}
	return event, students, nil
}

// ImportRoster parses the uploaded spreadsheet and registers every row as a
// student of the event. Parse failures and duplicates surface as
// ErrInvalidInput / ErrDuplicateStudent for the controller's error map.
func (s *eventService) ImportRoster(ctx context.Context, eventID string, upload []byte) ([]*domain.Student, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}

	result, err := roster.Parse(upload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}

	now := time.Now()
	students := make([]*domain.Student, 0, len(result.Rows))
	for _, row := range result.Rows {
		students = append(students, &domain.Student{
			EventID:   eventID,
			FullName:  row.FullName,
			Email:     row.Email,
			CreatedAt: now,
		})
	}
	if err := s.studentRepo.BulkCreate(ctx, students); err != nil {
		if errors.Is(err, domain.ErrDuplicateStudent) {
			return nil, nil, domain.ErrDuplicateStudent
		}
		return nil, nil, fmt.Errorf("register students: %w", err)
	}
	return students, result.Warnings, nil
}

func (s *eventService) DeleteStudent(ctx context.Context, eventID, studentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student.EventID != eventID {
		return domain.ErrNotFound
	}
	return s.studentRepo.Delete(ctx, studentID)
}
