package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkcertificates/internal/domain"
)

// fakeSoffice writes an executable script standing in for the LibreOffice
// binary.
func fakeSoffice(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soffice")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// convertScript emulates soffice's output naming: <source>.pdf in --outdir.
const convertScript = `
outdir=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    --outdir) outdir="$2"; shift 2 ;;
    --headless|--convert-to) shift ;;
    pdf|-env:*) shift ;;
    *) src="$1"; shift ;;
  esac
done
base=$(basename "$src" .docx)
echo "convert $src -> $outdir/$base.pdf"
printf '%%PDF-1.4 fake' > "$outdir/$base.pdf"
`

func TestConvert_ProducesPDF(t *testing.T) {
	binary := fakeSoffice(t, convertScript)
	conv := New(binary, 30*time.Second)

	dir := t.TempDir()
	docx := filepath.Join(dir, "certificate.docx")
	require.NoError(t, os.WriteFile(docx, []byte("PK fake docx"), 0o644))

	pdfPath, err := conv.Convert(context.Background(), docx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "certificate.pdf"), pdfPath)

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF")
}

func TestConvert_NonZeroExit(t *testing.T) {
	binary := fakeSoffice(t, "echo 'source file could not be loaded' >&2\nexit 77")
	conv := New(binary, 30*time.Second)

	_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "broken.docx"))
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 77, convErr.ExitCode)
	assert.Contains(t, convErr.Output, "could not be loaded")
}

func TestConvert_Timeout(t *testing.T) {
	binary := fakeSoffice(t, "sleep 10")
	conv := New(binary, 100*time.Millisecond)

	_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "slow.docx"))
	var timeoutErr *domain.ConversionTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, domain.IsRecoverable(err))
}

func TestConvert_ExitZeroWithoutOutput(t *testing.T) {
	binary := fakeSoffice(t, "exit 0")
	conv := New(binary, 30*time.Second)

	_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "silent.docx"))
	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Contains(t, convErr.Output, "no output file")
}

func TestAvailable(t *testing.T) {
	ok := fakeSoffice(t, "echo 'LibreOffice 7.6'\nexit 0")
	assert.True(t, New(ok, time.Second).Available(context.Background()))

	bad := fakeSoffice(t, "exit 1")
	assert.False(t, New(bad, time.Second).Available(context.Background()))

	assert.False(t, New("/does/not/exist", time.Second).Available(context.Background()))
}
