// Package roster parses uploaded student rosters (xlsx) into validated
// (full name, email) rows. Parsing is pure: the caller persists results.
package roster

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Row is one extracted roster entry. SourceRow is the 1-based sheet row.
type Row struct {
	FullName  string
	Email     string
	SourceRow int
}

// Result carries the parsed rows plus soft warnings (rows skipped because
// only one of the two fields was populated).
type Result struct {
	Rows     []Row
	Warnings []string
}

// headerScanLimit bounds how deep in the sheet the header row may appear.
const headerScanLimit = 20

// maxNameLength is the longest accepted full name.
const maxNameLength = 300

// Accepted header synonyms, compared case-insensitively with accents
// stripped. Historical rosters use every one of these.
var (
	nameHeaders = []string{
		"NOMBRES COMPLETOS", "NOMBRE COMPLETO", "NOMBRES", "NOMBRE",
		"ESTUDIANTE", "ESTUDIANTES", "PARTICIPANTE", "PARTICIPANTES",
	}
	emailHeaders = []string{
		"CORREO ELECTRONICO", "CORREOS ELECTRONICOS", "CORREO", "CORREOS",
		"EMAIL", "EMAILS", "E-MAIL", "E-MAILS", "MAIL", "MAILS",
	}
)

// emailRegex restricts addresses to letters, digits, '.', '_', '-' and '@',
// with a structural local@domain.tld shape and a TLD of at least two letters.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*@[a-zA-Z0-9][a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// HeaderNotFoundError reports that no row within the scan window contained
// both a recognizable name column and email column.
type HeaderNotFoundError struct {
	MissingSet  string // "name" or "email"
	HeadersSeen []string
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("no %s column found in the first %d rows (headers seen: %s)",
		e.MissingSet, headerScanLimit, strings.Join(e.HeadersSeen, ", "))
}

// RowError is one validation finding, tied to its sheet row.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ValidationError aggregates every row-level violation found in the file.
// Validation never short-circuits; the submitter gets the full report.
type ValidationError struct {
	Issues []RowError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "roster validation failed: " + strings.Join(parts, "; ")
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize uppercases, strips accents and collapses whitespace for header
// comparison.
func normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(out)), " ")
}

// matchesAny reports whether the normalized header matches any keyword by
// substring containment in either direction.
func matchesAny(header string, keywords []string) bool {
	if header == "" {
		return false
	}
	for _, kw := range keywords {
		k := normalize(kw)
		if strings.Contains(header, k) || strings.Contains(k, header) {
			return true
		}
	}
	return false
}

// Parse reads an xlsx roster and returns its validated rows. The header row
// is auto-detected within the first 20 sheet rows.
func Parse(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a valid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	headerRow, nameCol, emailCol, err := locateHeader(rows)
	if err != nil {
		return nil, err
	}

	result := extract(rows, headerRow, nameCol, emailCol)
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("no students found after the header row")
	}
	if err := validate(result.Rows); err != nil {
		return nil, err
	}
	return result, nil
}

// locateHeader scans the first rows for one containing both a name and an
// email column. Returns the header row index and both column indexes.
func locateHeader(rows [][]string) (headerRow, nameCol, emailCol int, err error) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	var lastSeen []string
	for r := 0; r < limit; r++ {
		nameCol, emailCol = -1, -1
		for c, cell := range rows[r] {
			h := normalize(cell)
			if nameCol == -1 && matchesAny(h, nameHeaders) {
				nameCol = c
				continue
			}
			if emailCol == -1 && matchesAny(h, emailHeaders) {
				emailCol = c
			}
		}
		if nameCol >= 0 && emailCol >= 0 {
			return r, nameCol, emailCol, nil
		}
		if len(rows[r]) > 0 {
			lastSeen = rows[r]
		}
	}
	missing := "name"
	// Report the set that never matched; if both are missing, name wins.
	for r := 0; r < limit; r++ {
		for _, cell := range rows[r] {
			if matchesAny(normalize(cell), nameHeaders) {
				missing = "email"
			}
		}
	}
	return 0, 0, 0, &HeaderNotFoundError{MissingSet: missing, HeadersSeen: lastSeen}
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return strings.TrimSpace(row[col])
	}
	return ""
}

func extract(rows [][]string, headerRow, nameCol, emailCol int) *Result {
	result := &Result{}
	for r := headerRow + 1; r < len(rows); r++ {
		name := cellAt(rows[r], nameCol)
		email := cellAt(rows[r], emailCol)
		sheetRow := r + 1

		if name == "" && email == "" {
			continue
		}
		if name == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: blank name, email %q skipped", sheetRow, email))
			continue
		}
		if email == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: blank email, name %q skipped", sheetRow, name))
			continue
		}
		result.Rows = append(result.Rows, Row{FullName: name, Email: email, SourceRow: sheetRow})
	}
	return result
}

func validate(rows []Row) error {
	var issues []RowError
	seen := make(map[string]struct{})

	for _, row := range rows {
		if len(row.FullName) > maxNameLength {
			issues = append(issues, RowError{row.SourceRow,
				fmt.Sprintf("name too long (%d characters, max %d)", len(row.FullName), maxNameLength)})
		}
		if strings.TrimSpace(row.FullName) == "" {
			issues = append(issues, RowError{row.SourceRow, "blank name"})
		}

		email := strings.TrimSpace(row.Email)
		if !emailRegex.MatchString(email) {
			issues = append(issues, RowError{row.SourceRow,
				fmt.Sprintf("invalid email format: %q (only letters, digits, dots, hyphens and underscore allowed)", row.Email)})
			continue
		}
		local := strings.SplitN(email, "@", 2)[0]
		if strings.HasPrefix(local, ".") || strings.HasPrefix(local, "-") ||
			strings.HasSuffix(local, ".") || strings.HasSuffix(local, "-") {
			issues = append(issues, RowError{row.SourceRow,
				fmt.Sprintf("email local part must not start or end with '.' or '-': %q", row.Email)})
			continue
		}
		if strings.Contains(email, "..") {
			issues = append(issues, RowError{row.SourceRow,
				fmt.Sprintf("email must not contain consecutive dots: %q", row.Email)})
			continue
		}

		lower := strings.ToLower(email)
		if _, dup := seen[lower]; dup {
			issues = append(issues, RowError{row.SourceRow,
				fmt.Sprintf("duplicate email: %q", row.Email)})
			continue
		}
		seen[lower] = struct{}{}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
