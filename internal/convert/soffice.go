// Package convert shells out to a headless LibreOffice to turn docx
// certificates into PDF.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bulkcertificates/internal/domain"
)

// availableProbeTimeout bounds the --version probe so a wedged binary cannot
// stall startup or health checks.
const availableProbeTimeout = 5 * time.Second

// SofficeConverter runs the LibreOffice CLI with a throwaway user profile per
// invocation, so concurrent conversions never fight over the profile lock.
type SofficeConverter struct {
	binary  string
	timeout time.Duration
}

// New returns a converter using the given soffice binary path and per-call
// conversion timeout.
func New(binary string, timeout time.Duration) *SofficeConverter {
	return &SofficeConverter{binary: binary, timeout: timeout}
}

// Convert produces a PDF next to the source document and returns its absolute
// path. The output file name is the source name with a .pdf extension.
func (c *SofficeConverter) Convert(ctx context.Context, docxAbsPath string) (string, error) {
	outDir := filepath.Dir(docxAbsPath)

	profileDir, err := os.MkdirTemp("", "LO_"+uuid.NewString()[:8]+"_")
	if err != nil {
		return "", fmt.Errorf("create converter profile dir: %w", err)
	}
	defer os.RemoveAll(profileDir)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"-env:UserInstallation=file://"+profileDir,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		docxAbsPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &domain.ConversionTimeoutError{Timeout: c.timeout.String()}
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &domain.ConversionError{ExitCode: exitCode, Output: string(output)}
	}

	pdfPath := strings.TrimSuffix(docxAbsPath, filepath.Ext(docxAbsPath)) + ".pdf"
	if _, err := os.Stat(pdfPath); err != nil {
		// soffice can exit 0 without producing output (e.g. broken install).
		return "", &domain.ConversionError{ExitCode: 0, Output: "converter produced no output file: " + string(output)}
	}
	return pdfPath, nil
}

// Available probes the binary with --version.
func (c *SofficeConverter) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availableProbeTimeout)
	defer cancel()
	return exec.CommandContext(ctx, c.binary, "--version").Run() == nil
}
