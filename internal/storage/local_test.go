package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificatePaths(t *testing.T) {
	docx, pdf := CertificatePaths("ev-1", "st-9")
	assert.Equal(t, "certificates/ev-1/st-9/certificate.docx", docx)
	assert.Equal(t, "certificates/ev-1/st-9/certificate.pdf", pdf)
}

func TestTemplateUploadPath(t *testing.T) {
	path := TemplateUploadPath("dtic", "plantilla base.docx")
	assert.True(t, strings.HasPrefix(path, "templates/dtic/plantilla base_"))
	assert.True(t, strings.HasSuffix(path, ".docx"))

	// Re-uploads of the same file never collide.
	assert.NotEqual(t, path, TemplateUploadPath("dtic", "plantilla base.docx"))
}

func TestLocalStore_SaveOpenRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	rel := "certificates/ev-1/st-1/certificate.docx"
	require.NoError(t, store.Save(rel, strings.NewReader("contents")))
	assert.True(t, store.Exists(rel))

	rc, err := store.Open(rel)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))
}

func TestLocalStore_Remove(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("a/b.txt", strings.NewReader("x")))
	require.NoError(t, store.Remove("a/b.txt"))
	assert.False(t, store.Exists("a/b.txt"))

	// Removing a missing file is not an error.
	require.NoError(t, store.Remove("a/b.txt"))
}

func TestLocalStore_AbsPathCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)

	tests := []string{
		"../../etc/passwd",
		"a/../../../etc/passwd",
		"/etc/passwd",
	}
	for _, rel := range tests {
		abs := store.AbsPath(rel)
		assert.True(t, strings.HasPrefix(abs, root), "escaped root: %s -> %s", rel, abs)
	}
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), store.AbsPath("../../etc/passwd"))
}

func TestLocalStore_HealthCheck(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck())
}
