package domain

import (
	"context"
	"io"
)

// FileStore abstracts the storage layout for templates and generated
// certificates. Paths are storage-relative; callers must treat storage as
// potentially unreachable and health-check before trusting any path.
type FileStore interface {
	Save(rel string, r io.Reader) error
	Open(rel string) (io.ReadCloser, error)
	Exists(rel string) bool
	Remove(rel string) error
	// AbsPath maps a storage-relative path to an absolute filesystem path for
	// components that shell out (the format converter).
	AbsPath(rel string) string
	HealthCheck() error
}

// Converter turns an editable document into a PDF via an external headless
// office engine.
type Converter interface {
	// Convert returns the absolute path of the produced PDF.
	Convert(ctx context.Context, docxAbsPath string) (string, error)
	// Available probes the converter binary. Failure is non-fatal to
	// generation requests.
	Available(ctx context.Context) bool
}
