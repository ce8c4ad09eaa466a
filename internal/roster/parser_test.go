package roster

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildSheet creates an in-memory xlsx whose first sheet holds rows starting
// at A1.
func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParse_HappyPath(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"NOMBRES COMPLETOS", "CORREO ELECTRÓNICO"},
		{"Ana María Pérez", "ana.perez@example.com"},
		{"Luis Gómez", "luis_gomez@uni.edu.ec"},
	})

	result, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, Row{FullName: "Ana María Pérez", Email: "ana.perez@example.com", SourceRow: 2}, result.Rows[0])
	assert.Equal(t, Row{FullName: "Luis Gómez", Email: "luis_gomez@uni.edu.ec", SourceRow: 3}, result.Rows[1])
}

func TestParse_HeaderBelowTitleRows(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"UNIVERSIDAD"},
		{"LISTADO DE PARTICIPANTES"},
		{},
		{"Estudiante", "Email"},
		{"Carla Ruiz", "carla@example.com"},
	})

	result, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 5, result.Rows[0].SourceRow)
}

func TestParse_AccentedAndSynonymHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{"accented correo", []string{"NOMBRE", "CORREO ELECTRÓNICO"}},
		{"e-mail synonym", []string{"PARTICIPANTES", "E-MAIL"}},
		{"mixed case", []string{"Nombres Completos", "Mail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildSheet(t, [][]string{
				tt.header,
				{"Ana Pérez", "ana@example.com"},
			})
			result, err := Parse(data)
			require.NoError(t, err)
			require.Len(t, result.Rows, 1)
		})
	}
}

func TestParse_HeaderNotFound(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"COLUMNA A", "COLUMNA B"},
		{"x", "y"},
	})

	_, err := Parse(data)
	var headerErr *HeaderNotFoundError
	require.ErrorAs(t, err, &headerErr)
	assert.Equal(t, "name", headerErr.MissingSet)
}

func TestParse_EmailColumnMissing(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"NOMBRES", "TELEFONO"},
		{"Ana", "099"},
	})

	_, err := Parse(data)
	var headerErr *HeaderNotFoundError
	require.ErrorAs(t, err, &headerErr)
	assert.Equal(t, "email", headerErr.MissingSet)
}

func TestParse_HalfEmptyRowsAreWarnings(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"NOMBRES", "CORREO"},
		{"Ana Pérez", "ana@example.com"},
		{"", "solo.correo@example.com"},
		{"Solo Nombre", ""},
		{"", ""},
	})

	result, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "row 3")
	assert.Contains(t, result.Warnings[1], "row 4")
}

func TestParse_ValidationAggregatesAllIssues(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"NOMBRES", "CORREO"},
		{"Ana Pérez", "not-an-email"},
		{"Luis Gómez", ".starts.with.dot@example.com"},
		{"Carla Ruiz", "doble..punto@example.com"},
		{"Dup Uno", "dup@example.com"},
		{"Dup Dos", "DUP@example.com"},
	})

	_, err := Parse(data)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Issues, 4)
}

func TestParse_EmailFormat(t *testing.T) {
	valid := []string{
		"simple@example.com",
		"with.dots@sub.example.edu.ec",
		"under_score-dash@example.org",
		"123digits@example.io",
	}
	invalid := []string{
		"no-at-sign.example.com",
		"spaces in@example.com",
		"ñ@example.com",
		"plus+tag@example.com",
		"trailing.@example.com",
		"x@example.c",
	}

	for _, email := range valid {
		t.Run("valid "+email, func(t *testing.T) {
			data := buildSheet(t, [][]string{
				{"NOMBRES", "CORREO"},
				{"Ana", email},
			})
			_, err := Parse(data)
			require.NoError(t, err)
		})
	}
	for _, email := range invalid {
		t.Run("invalid "+email, func(t *testing.T) {
			data := buildSheet(t, [][]string{
				{"NOMBRES", "CORREO"},
				{"Ana", email},
			})
			_, err := Parse(data)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestParse_NotASpreadsheet(t *testing.T) {
	_, err := Parse([]byte("definitely not xlsx"))
	require.Error(t, err)
}

func TestParse_NoStudentsAfterHeader(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"NOMBRES", "CORREO"},
	})
	_, err := Parse(data)
	require.ErrorContains(t, err, "no students")
}
