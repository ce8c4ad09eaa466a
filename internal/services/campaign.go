package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"bulkcertificates/internal/domain"
)

// maxInlineImageWidth bounds embedded campaign images; wider uploads are
// downscaled before sending to keep message size reasonable.
const maxInlineImageWidth = 600

// dataURIRegex matches embedded base64 images in campaign HTML.
var dataURIRegex = regexp.MustCompile(`data:image/(png|jpeg|jpg|gif);base64,([A-Za-z0-9+/=]+)`)

type campaignService struct {
	campaignRepo   domain.CampaignRepository
	eventRepo      domain.EventRepository
	studentRepo    domain.StudentRepository
	mailer         domain.Mailer
	quota          domain.EmailQuota
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewCampaignService(campaignRepo domain.CampaignRepository,
	eventRepo domain.EventRepository,
	studentRepo domain.StudentRepository,
	mailer domain.Mailer,
	quota domain.EmailQuota,
	logger *slog.Logger,
	timeout time.Duration,
) domain.CampaignService {
	return &campaignService{
		campaignRepo:   campaignRepo,
		eventRepo:      eventRepo,
		studentRepo:    studentRepo,
		mailer:         mailer,
		quota:          quota,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// CreateFromEvent snapshots the event's roster as campaign recipients.
func (s *campaignService) CreateFromEvent(ctx context.Context, eventID, name, subject, message string) (*domain.Campaign, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if subject == "" || message == "" {
		return nil, fmt.Errorf("%w: campaign subject and message are required", domain.ErrInvalidInput)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	students, err := s.studentRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("%w: event has no students", domain.ErrInvalidInput)
	}

	now := time.Now()
	campaign := &domain.Campaign{
		EventID:   eventID,
		Name:      name,
		Subject:   subject,
		Message:   message,
		State:     domain.CampaignStateDraft,
		Total:     len(students),
		CreatedAt: now,
		UpdatedAt: now,
	}
	recipients := make([]*domain.CampaignRecipient, 0, len(students))
	for _, st := range students {
		recipients = append(recipients, &domain.CampaignRecipient{
			FullName: st.FullName,
			Email:    st.Email,
			State:    domain.RecipientStatePending,
		})
	}
	if err := s.campaignRepo.Create(ctx, campaign, recipients); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return campaign, nil
}

// Get returns the campaign with its full recipient list, so callers can see
// per-recipient delivery state alongside the aggregate counters.
func (s *campaignService) Get(ctx context.Context, campaignID string) (*domain.Campaign, []*domain.CampaignRecipient, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	recipients, err := s.campaignRepo.ListRecipients(ctx, campaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("list recipients: %w", err)
	}
	return campaign, recipients, nil
}

// Send delivers the campaign to every pending recipient. Embedded data: URI
// images are extracted once into cid: inline parts shared by all messages.
func (s *campaignService) Send(ctx context.Context, campaignID string) (int, int, error) {
	return s.deliver(ctx, campaignID, domain.RecipientStatePending, false)
}

// RetryFailed re-delivers to recipients whose last attempt failed.
func (s *campaignService) RetryFailed(ctx context.Context, campaignID string) (int, int, error) {
	return s.deliver(ctx, campaignID, domain.RecipientStateFailed, true)
}

func (s *campaignService) deliver(ctx context.Context, campaignID, fromState string, reset bool) (int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return 0, 0, err
	}
	recipients, err := s.campaignRepo.ListRecipientsByState(ctx, campaignID, fromState)
	if err != nil {
		return 0, 0, fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return 0, 0, fmt.Errorf("%w: campaign has no %s recipients", domain.ErrInvalidInput, fromState)
	}

	allowed, _, message, err := s.quota.CanSend(ctx, len(recipients))
	if err != nil {
		return 0, 0, fmt.Errorf("check email quota: %w", err)
	}
	if !allowed {
		return 0, 0, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, message)
	}

	htmlBody, inline := extractInlineImages(campaign.Message, s.logger)

	if err := s.campaignRepo.UpdateStats(ctx, campaignID, domain.CampaignStateProcessing, nil); err != nil {
		return 0, 0, fmt.Errorf("update campaign state: %w", err)
	}

	sent, failed := 0, 0
	for _, rec := range recipients {
		if reset {
			if err := s.campaignRepo.ResetRecipient(ctx, rec.ID); err != nil {
				s.logger.Error("reset recipient", "recipient_id", rec.ID, "err", err)
			}
		}
		msg := &domain.OutboundEmail{
			To:       rec.Email,
			Subject:  campaign.Subject,
			HTMLBody: personalize(htmlBody, rec.FullName),
			Inline:   inline,
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			failed++
			s.logger.Warn("campaign send failed", "campaign_id", campaignID, "to", rec.Email, "err", err)
			if markErr := s.campaignRepo.MarkRecipientFailed(ctx, rec.ID, err.Error()); markErr != nil {
				s.logger.Error("mark recipient failed", "recipient_id", rec.ID, "err", markErr)
			}
			continue
		}
		sent++
		now := time.Now()
		if err := s.quota.Increment(ctx, 1); err != nil {
			s.logger.Warn("quota increment after campaign send", "campaign_id", campaignID, "err", err)
		}
		if err := s.campaignRepo.MarkRecipientSent(ctx, rec.ID, now); err != nil {
			s.logger.Error("mark recipient sent", "recipient_id", rec.ID, "err", err)
		}
	}

	now := time.Now()
	if err := s.campaignRepo.UpdateStats(ctx, campaignID, domain.CampaignStateCompleted, &now); err != nil {
		s.logger.Error("update campaign stats", "campaign_id", campaignID, "err", err)
	}
	return sent, failed, nil
}

// personalize substitutes the recipient's name into {NOMBRE} markers.
func personalize(html, fullName string) string {
	return strings.ReplaceAll(html, "{NOMBRE}", fullName)
}

// extractInlineImages replaces each data: URI image in the HTML with a cid:
// reference and returns the decoded (and possibly downscaled) images. Images
// that fail to decode are passed through untouched.
func extractInlineImages(html string, logger *slog.Logger) (string, []domain.InlineImage) {
	var inline []domain.InlineImage
	out := dataURIRegex.ReplaceAllStringFunc(html, func(match string) string {
		groups := dataURIRegex.FindStringSubmatch(match)
		data, err := base64.StdEncoding.DecodeString(groups[2])
		if err != nil {
			logger.Warn("campaign inline image is not valid base64")
			return match
		}
		format := groups[1]
		data, format = downscale(data, format, logger)

		cid := "img-" + uuid.NewString()
		inline = append(inline, domain.InlineImage{
			ContentID:   cid,
			ContentType: "image/" + format,
			Data:        data,
		})
		return "cid:" + cid
	})
	return out, inline
}

// downscale resizes images wider than maxInlineImageWidth, preserving aspect
// ratio. On any decode error the original bytes are kept.
func downscale(data []byte, format string, logger *slog.Logger) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, format
	}
	if img.Bounds().Dx() <= maxInlineImageWidth {
		return data, format
	}

	resized := imaging.Resize(img, maxInlineImageWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
		format = "jpeg"
	default:
		err = png.Encode(&buf, resized)
		format = "png"
	}
	if err != nil {
		logger.Warn("downscale campaign image", "err", err)
		return data, format
	}
	return buf.Bytes(), format
}
