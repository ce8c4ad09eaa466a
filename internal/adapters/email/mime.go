package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"

	"bulkcertificates/internal/domain"
)

// buildMIME assembles a raw RFC 2045 message for an email with attachments
// and/or inline images. Structure:
//
//	multipart/mixed
//	├── multipart/related
//	│   ├── multipart/alternative (text, html)
//	│   └── inline images (Content-ID referenced)
//	└── attachments
func buildMIME(from string, msg *domain.OutboundEmail) ([]byte, error) {
	body, bodyType, err := buildBody(msg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	bodyHdr := textproto.MIMEHeader{}
	bodyHdr.Set("Content-Type", bodyType)
	bodyPart, err := mixed.CreatePart(bodyHdr)
	if err != nil {
		return nil, err
	}
	if _, err := bodyPart.Write(body); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", att.ContentType)
		hdr.Set("Content-Transfer-Encoding", "base64")
		hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		part, err := mixed.CreatePart(hdr)
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildBody renders the multipart/related body (alternative text/html pair
// plus inline cid: images) and returns it with its Content-Type.
func buildBody(msg *domain.OutboundEmail) ([]byte, string, error) {
	alt, altType, err := buildAlternative(msg)
	if err != nil {
		return nil, "", err
	}
	if len(msg.Inline) == 0 {
		return alt, altType, nil
	}

	var buf bytes.Buffer
	related := multipart.NewWriter(&buf)

	altHdr := textproto.MIMEHeader{}
	altHdr.Set("Content-Type", altType)
	altPart, err := related.CreatePart(altHdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := altPart.Write(alt); err != nil {
		return nil, "", err
	}

	for _, img := range msg.Inline {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", img.ContentType)
		hdr.Set("Content-Transfer-Encoding", "base64")
		hdr.Set("Content-ID", "<"+img.ContentID+">")
		hdr.Set("Content-Disposition", "inline")
		part, err := related.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if err := writeBase64(part, img.Data); err != nil {
			return nil, "", err
		}
	}
	if err := related.Close(); err != nil {
		return nil, "", err
	}
	contentType := fmt.Sprintf("multipart/related; boundary=%q", related.Boundary())
	return buf.Bytes(), contentType, nil
}

func buildAlternative(msg *domain.OutboundEmail) ([]byte, string, error) {
	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)

	if msg.TextBody != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", "text/plain; charset=UTF-8")
		hdr.Set("Content-Transfer-Encoding", "base64")
		part, err := alt.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if err := writeBase64(part, []byte(msg.TextBody)); err != nil {
			return nil, "", err
		}
	}
	if msg.HTMLBody != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", "text/html; charset=UTF-8")
		hdr.Set("Content-Transfer-Encoding", "base64")
		part, err := alt.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if err := writeBase64(part, []byte(msg.HTMLBody)); err != nil {
			return nil, "", err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, "", err
	}
	contentType := fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary())
	return buf.Bytes(), contentType, nil
}

// writeBase64 emits data base64-encoded and wrapped at 76 columns.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
