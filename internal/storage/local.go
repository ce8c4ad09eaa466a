// Package storage implements the on-disk layout for templates and generated
// certificates under a single configurable root.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore is a FileStore rooted at a directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocal returns a store rooted at root, creating it if needed.
func NewLocal(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// CertificatePaths returns the storage-relative docx and pdf paths for a
// certificate. Both artifacts for one student live in the same directory so
// the converter writes the PDF next to its source.
func CertificatePaths(eventID, studentID string) (docx, pdf string) {
	dir := filepath.ToSlash(filepath.Join("certificates", eventID, studentID))
	return dir + "/certificate.docx", dir + "/certificate.pdf"
}

// TemplateUploadPath returns a storage-relative path for an uploaded template
// file, disambiguated with a short random suffix so re-uploads never clobber
// files still referenced by older template rows.
func TemplateUploadPath(directionCode, filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("%s_%s%s", base, suffix, filepath.Ext(filename))
	return filepath.ToSlash(filepath.Join("templates", directionCode, name))
}

func (s *LocalStore) Save(rel string, r io.Reader) error {
	abs := s.AbsPath(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return f.Close()
}

func (s *LocalStore) Open(rel string) (io.ReadCloser, error) {
	f, err := os.Open(s.AbsPath(rel))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

func (s *LocalStore) Exists(rel string) bool {
	info, err := os.Stat(s.AbsPath(rel))
	return err == nil && !info.IsDir()
}

func (s *LocalStore) Remove(rel string) error {
	err := os.Remove(s.AbsPath(rel))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// AbsPath maps a storage-relative path to its absolute location. Relative
// paths are cleaned so stored values cannot escape the root.
func (s *LocalStore) AbsPath(rel string) string {
	rel = filepath.Clean("/" + filepath.FromSlash(rel))
	return filepath.Join(s.root, rel)
}

// HealthCheck verifies the root is writable by creating and removing a probe
// file. Generation requests are rejected up front when this fails.
func (s *LocalStore) HealthCheck() error {
	probe := filepath.Join(s.root, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage not writable: %w", err)
	}
	return os.Remove(probe)
}
