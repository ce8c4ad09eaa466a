package email

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkcertificates/internal/domain"
)

func TestTemplateRenderer_Certificate(t *testing.T) {
	renderer := NewTemplateRenderer()
	data := &domain.CertificateEmailData{
		FullName:      "Ana María Pérez",
		EventName:     "Curso de Go",
		StartDate:     "2 de febrero de 2026",
		EndDate:       "27 de febrero de 2026",
		DurationHours: 40,
		Modality:      "Virtual",
		DirectionName: "Dirección de Tecnología",
	}

	subject, htmlBody, textBody, err := renderer.Render("certificate", data)
	require.NoError(t, err)

	assert.Equal(t, "Certificado - Curso de Go", subject)
	assert.Contains(t, htmlBody, "Ana María Pérez")
	assert.Contains(t, htmlBody, "Curso de Go")
	assert.Contains(t, textBody, "Curso de Go")
	assert.Contains(t, textBody, "40")
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	renderer := NewTemplateRenderer()
	_, _, _, err := renderer.Render("does-not-exist", nil)
	require.Error(t, err)
}

func TestNewMailer_FallsBackToNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mailer, err := NewMailer(logger, MailerConfig{Provider: "noop"})
	require.NoError(t, err)
	require.NoError(t, mailer.Send(t.Context(), &domain.OutboundEmail{To: "a@b.c"}))

	mailer, err = NewMailer(logger, MailerConfig{Provider: "smtp-legacy"})
	require.NoError(t, err)
	require.NoError(t, mailer.Send(t.Context(), &domain.OutboundEmail{To: "a@b.c"}))
}
