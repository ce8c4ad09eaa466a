package domain

import "context"

// Attachment is a regular file attachment of an outbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InlineImage is an image embedded in an HTML body, referenced by cid:.
type InlineImage struct {
	ContentID   string
	ContentType string
	Data        []byte
}

// OutboundEmail is one message to one recipient.
type OutboundEmail struct {
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
	Inline      []InlineImage
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg *OutboundEmail) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// CertificateEmailData holds data for the certificate delivery email.
type CertificateEmailData struct {
	FullName      string
	EventName     string
	StartDate     string
	EndDate       string
	DurationHours int
	Modality      string
	DirectionName string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	// SendCertificate sends the delivery email with the PDF attached.
	SendCertificate(ctx context.Context, to string, data *CertificateEmailData, pdf Attachment) error
}
