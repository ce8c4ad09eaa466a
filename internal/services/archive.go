package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bulkcertificates/internal/domain"
)

// ArchiveService bundles an event's generated PDFs into one zip download.
type ArchiveService struct {
	certRepo       domain.CertificateRepository
	studentRepo    domain.StudentRepository
	store          domain.FileStore
	contextTimeout time.Duration
}

func NewArchiveService(certRepo domain.CertificateRepository,
	studentRepo domain.StudentRepository,
	store domain.FileStore,
	timeout time.Duration,
) *ArchiveService {
	return &ArchiveService{
		certRepo:       certRepo,
		studentRepo:    studentRepo,
		store:          store,
		contextTimeout: timeout,
	}
}

// WriteZip streams every available certificate PDF of the event into w.
// Certificates without a PDF on disk are skipped; the archive fails only when
// nothing at all could be included.
func (s *ArchiveService) WriteZip(ctx context.Context, eventID string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	certs, err := s.certRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list certificates: %w", err)
	}

	zw := zip.NewWriter(w)
	included := 0
	used := make(map[string]int)
	for _, cert := range certs {
		if cert.PDFPath == nil || !s.store.Exists(*cert.PDFPath) {
			continue
		}
		student, err := s.studentRepo.GetByID(ctx, cert.StudentID)
		if err != nil {
			continue
		}

		name := sanitizeFilename(student.FullName)
		if name == "" {
			name = cert.StudentID
		}
		entry := "Certificado_" + name + ".pdf"
		// Homonyms get a numeric suffix instead of silently overwriting.
		if n := used[entry]; n > 0 {
			used[entry] = n + 1
			entry = fmt.Sprintf("Certificado_%s_%d.pdf", name, n+1)
		} else {
			used[entry] = 1
		}

		rc, err := s.store.Open(*cert.PDFPath)
		if err != nil {
			continue
		}
		fw, err := zw.Create(entry)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create zip entry: %w", err)
		}
		_, copyErr := io.Copy(fw, rc)
		rc.Close()
		if copyErr != nil {
			return fmt.Errorf("write zip entry: %w", copyErr)
		}
		included++
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if included == 0 {
		return fmt.Errorf("%w: no generated certificates available for download", domain.ErrInvalidInput)
	}
	return nil
}

var filenameAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeFilename turns a student name into a safe file name component:
// accents stripped, spaces underscored, anything but letters/digits dropped.
func sanitizeFilename(name string) string {
	out, _, err := transform.String(filenameAccents, name)
	if err != nil {
		out = name
	}
	var sb strings.Builder
	for _, r := range out {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			sb.WriteRune('_')
		}
	}
	return strings.Trim(sb.String(), "_")
}
