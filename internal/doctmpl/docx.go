package doctmpl

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// docx files are zip archives; substitution touches the main document part
// and every header/footer part, leaving all other parts byte-identical.
func isTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	return strings.HasPrefix(name, "word/header") && strings.HasSuffix(name, ".xml") ||
		strings.HasPrefix(name, "word/footer") && strings.HasSuffix(name, ".xml")
}

// rewriteParts reads the docx archive and passes each text part through fn,
// rebuilding the archive with all other entries copied verbatim.
func rewriteParts(docx []byte, fn func(partName string, xml []byte) ([]byte, error)) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return nil, fmt.Errorf("not a valid docx archive: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", entry.Name, err)
		}

		if isTextPart(entry.Name) {
			data, err = fn(entry.Name, data)
			if err != nil {
				return nil, fmt.Errorf("rewrite part %s: %w", entry.Name, err)
			}
		}

		hdr := entry.FileHeader
		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", entry.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
