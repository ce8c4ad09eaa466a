package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"bulkcertificates/internal/domain"
	"bulkcertificates/internal/storage"
)

type templateService struct {
	templateRepo   domain.TemplateRepository
	directionRepo  domain.DirectionRepository
	store          domain.FileStore
	contextTimeout time.Duration
}

func NewTemplateService(templateRepo domain.TemplateRepository,
	directionRepo domain.DirectionRepository,
	store domain.FileStore,
	timeout time.Duration,
) domain.TemplateService {
	return &templateService{
		templateRepo:   templateRepo,
		directionRepo:  directionRepo,
		store:          store,
		contextTimeout: timeout,
	}
}

// docx files start with the zip magic.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

func validateDocx(file []byte) error {
	if len(file) < len(zipMagic) || !bytes.Equal(file[:len(zipMagic)], zipMagic) {
		return fmt.Errorf("%w: template file is not a docx document", domain.ErrInvalidInput)
	}
	return nil
}

// ResolveForEvent picks the template file for an event: the event's variant
// when set and active, otherwise the direction's active base template.
func (s *templateService) ResolveForEvent(ctx context.Context, event *domain.Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.VariantID != nil {
		variant, err := s.templateRepo.GetVariantByID(ctx, *event.VariantID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("get variant: %w", err)
		}
		if err == nil && variant.Active && variant.FilePath != "" {
			return variant.FilePath, nil
		}
	}

	base, err := s.templateRepo.GetActiveBaseByDirection(ctx, event.DirectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			direction, dirErr := s.directionRepo.GetByID(ctx, event.DirectionID)
			name := event.DirectionID
			if dirErr == nil {
				name = direction.Name
			}
			return "", &domain.TemplateNotFoundError{Direction: name}
		}
		return "", fmt.Errorf("get active base template: %w", err)
	}
	return base.FilePath, nil
}

func (s *templateService) UploadBase(ctx context.Context, directionID, name, description string, file []byte) (*domain.BaseTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateDocx(file); err != nil {
		return nil, err
	}
	direction, err := s.directionRepo.GetByID(ctx, directionID)
	if err != nil {
		return nil, err
	}

	rel := storage.TemplateUploadPath(direction.Code, name+".docx")
	if err := s.store.Save(rel, bytes.NewReader(file)); err != nil {
		return nil, fmt.Errorf("store template file: %w", err)
	}

	now := time.Now()
	t := &domain.BaseTemplate{
		DirectionID: directionID,
		Name:        name,
		FilePath:    rel,
		Description: description,
		Active:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.templateRepo.CreateBase(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

func (s *templateService) UploadVariant(ctx context.Context, baseID, name string, ordering int, file []byte) (*domain.TemplateVariant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateDocx(file); err != nil {
		return nil, err
	}
	base, err := s.templateRepo.GetBaseByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	direction, err := s.directionRepo.GetByID(ctx, base.DirectionID)
	if err != nil {
		return nil, err
	}

	rel := storage.TemplateUploadPath(direction.Code, name+".docx")
	if err := s.store.Save(rel, bytes.NewReader(file)); err != nil {
		return nil, fmt.Errorf("store variant file: %w", err)
	}

	now := time.Now()
	v := &domain.TemplateVariant{
		BaseID:    baseID,
		Name:      name,
		FilePath:  rel,
		Ordering:  ordering,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.templateRepo.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	return v, nil
}

func (s *templateService) ActivateBase(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.templateRepo.ActivateBase(ctx, id)
}

func (s *templateService) ListVariants(ctx context.Context, baseID string) ([]*domain.TemplateVariant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.templateRepo.ListVariantsByBase(ctx, baseID)
}
