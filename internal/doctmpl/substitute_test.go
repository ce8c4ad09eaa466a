package doctmpl

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentFooter = `</w:body></w:document>`

// buildDocx assembles a minimal docx archive with the given document body and
// optional extra parts.
func buildDocx(t *testing.T, body string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   documentHeader + body + documentFooter,
	}
	for name, content := range extra {
		parts[name] = content
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// readPart extracts one file from a docx archive.
func readPart(t *testing.T, docx []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	require.NoError(t, err)
	for _, entry := range zr.File {
		if entry.Name != name {
			continue
		}
		rc, err := entry.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func run(text string) string {
	return `<w:r><w:t>` + text + `</w:t></w:r>`
}

func TestSubstitute_ReplacesPlaceholders(t *testing.T) {
	docx := buildDocx(t, `<w:p>`+run(`Certificado para {{NOMBRES}}`)+`</w:p>`, nil)

	engine := New()
	rendered, warnings, err := engine.Substitute(docx, map[string]string{"NOMBRES": "ANA PÉREZ"})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	doc := readPart(t, rendered, "word/document.xml")
	assert.Contains(t, doc, "Certificado para ANA PÉREZ")
	assert.NotContains(t, doc, "{{NOMBRES}}")
}

func TestSubstitute_PlaceholderSplitAcrossRuns(t *testing.T) {
	// Word routinely fragments "{{NOMBRES}}" into several runs.
	body := `<w:p>` + run(`Certificado para {{NOM`) + run(`BRES}}`) + `</w:p>`
	docx := buildDocx(t, body, nil)

	engine := New()
	rendered, warnings, err := engine.Substitute(docx, map[string]string{"NOMBRES": "ANA"})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	doc := readPart(t, rendered, "word/document.xml")
	assert.Contains(t, doc, "Certificado para ANA")
}

func TestSubstitute_KeysAreUppercasedBeforeLookup(t *testing.T) {
	docx := buildDocx(t, `<w:p>`+run(`{{NOMBRES}}`)+`</w:p>`, nil)

	engine := New()
	rendered, _, err := engine.Substitute(docx, map[string]string{"nombres": "ANA"})
	require.NoError(t, err)
	assert.Contains(t, readPart(t, rendered, "word/document.xml"), "ANA")
}

func TestSubstitute_UnknownPlaceholderIsWarnedAndKept(t *testing.T) {
	body := `<w:p>` + run(`{{NOMBRES}} - {{CAMPO DESCONOCIDO}}`) + `</w:p>`
	docx := buildDocx(t, body, nil)

	engine := New()
	rendered, warnings, err := engine.Substitute(docx, map[string]string{"NOMBRES": "ANA"})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "{{CAMPO DESCONOCIDO}}")

	doc := readPart(t, rendered, "word/document.xml")
	assert.Contains(t, doc, "ANA")
	assert.Contains(t, doc, "{{CAMPO DESCONOCIDO}}")
}

func TestSubstitute_PreservesFirstRunFormatting(t *testing.T) {
	body := `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>{{NOMBRES}}</w:t></w:r></w:p>`
	docx := buildDocx(t, body, nil)

	engine := New()
	rendered, _, err := engine.Substitute(docx, map[string]string{"NOMBRES": "ANA"})
	require.NoError(t, err)

	doc := readPart(t, rendered, "word/document.xml")
	assert.Contains(t, doc, "<w:b/>")
	assert.Contains(t, doc, "ANA")
}

func TestSubstitute_TouchesHeadersAndFooters(t *testing.T) {
	header := `<?xml version="1.0"?><w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p>` +
		run(`{{TIPO DE EVENTO}}`) + `</w:p></w:hdr>`
	docx := buildDocx(t, `<w:p>`+run(`cuerpo`)+`</w:p>`, map[string]string{
		"word/header1.xml": header,
	})

	engine := New()
	rendered, _, err := engine.Substitute(docx, map[string]string{"TIPO DE EVENTO": "Taller"})
	require.NoError(t, err)
	assert.Contains(t, readPart(t, rendered, "word/header1.xml"), "Taller")
}

func TestSubstitute_LeavesOtherPartsVerbatim(t *testing.T) {
	styles := `<?xml version="1.0"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">{{NOMBRES}}</w:styles>`
	docx := buildDocx(t, `<w:p>`+run(`{{NOMBRES}}`)+`</w:p>`, map[string]string{
		"word/styles.xml": styles,
	})

	engine := New()
	rendered, _, err := engine.Substitute(docx, map[string]string{"NOMBRES": "ANA"})
	require.NoError(t, err)
	assert.Equal(t, styles, readPart(t, rendered, "word/styles.xml"))
}

func TestSubstitute_ParagraphsInsideTables(t *testing.T) {
	body := `<w:tbl><w:tr><w:tc><w:p>` + run(`{{DURACION}} horas`) + `</w:p></w:tc></w:tr></w:tbl>`
	docx := buildDocx(t, body, nil)

	engine := New()
	rendered, _, err := engine.Substitute(docx, map[string]string{"DURACION": "40"})
	require.NoError(t, err)
	assert.Contains(t, readPart(t, rendered, "word/document.xml"), "40 horas")
}

func TestSubstitute_NotADocx(t *testing.T) {
	engine := New()
	_, _, err := engine.Substitute([]byte("plain text"), map[string]string{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "docx"))
}
