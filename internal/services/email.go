package services

import (
	"context"
	"fmt"

	"bulkcertificates/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendCertificate sends the delivery email using the "certificate" template
// with the PDF attached.
func (s *emailService) SendCertificate(ctx context.Context, to string, data *domain.CertificateEmailData, pdf domain.Attachment) error {
	if data == nil {
		return fmt.Errorf("certificate email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("certificate", data)
	if err != nil {
		return fmt.Errorf("failed to render certificate template: %w", err)
	}
	msg := &domain.OutboundEmail{
		To:          to,
		Subject:     subject,
		HTMLBody:    htmlBody,
		TextBody:    textBody,
		Attachments: []domain.Attachment{pdf},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send certificate email: %w", err)
	}
	return nil
}
