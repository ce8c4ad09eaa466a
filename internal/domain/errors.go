package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across services and repositories.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateStudent   = errors.New("student already registered for event")
	ErrQuotaExceeded      = errors.New("daily email quota exceeded")
	ErrStorageUnavailable = errors.New("certificate storage is unavailable")
)

// TemplateNotFoundError reports that no usable template exists for a direction.
type TemplateNotFoundError struct {
	Direction string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no active certificate template for direction %q", e.Direction)
}

// ConversionError reports a failed document-to-PDF conversion, carrying the
// converter's diagnostic output.
type ConversionError struct {
	ExitCode int
	Output   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("pdf conversion failed (exit %d): %s", e.ExitCode, strings.TrimSpace(e.Output))
}

// ConversionTimeoutError reports that the converter subprocess exceeded its
// deadline. It is a recoverable-class failure eligible for retry.
type ConversionTimeoutError struct {
	Timeout string
}

func (e *ConversionTimeoutError) Error() string {
	return fmt.Sprintf("pdf conversion timeout (>%s)", e.Timeout)
}

// IsRecoverable reports whether err looks like a transient infrastructure
// failure worth retrying. The heuristic is a substring match on the error
// text, matching the retry policy of the generation pipeline.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var timeoutErr *ConversionTimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "temporary")
}
