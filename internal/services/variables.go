package services

import (
	"fmt"
	"strings"
	"time"

	"bulkcertificates/internal/domain"
)

// spanishMonths indexes month names for certificate dates.
var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// formatDateES renders a date as "2 de enero de 2006".
func formatDateES(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// eventKindLabels maps the stored kind value to its certificate wording.
var eventKindLabels = map[string]string{
	domain.EventKindCurso:        "Curso",
	domain.EventKindTaller:       "Taller",
	domain.EventKindSeminario:    "Seminario",
	domain.EventKindConferencia:  "Conferencia",
	domain.EventKindCapacitacion: "Capacitación",
	domain.EventKindDiplomado:    "Diplomado",
	domain.EventKindOtro:         "Otro",
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CertificateVariables assembles the substitution map for one certificate.
// Every canonical key is present along with its legacy alias, so templates
// written against either naming keep working.
func CertificateVariables(event *domain.Event, student *domain.Student, direction *domain.Direction) map[string]string {
	kind := eventKindLabels[event.Kind]
	if event.Kind == domain.EventKindOtro && event.KindDetail != "" {
		kind = event.KindDetail
	}

	return map[string]string{
		"NOMBRES":               strings.ToUpper(student.FullName),
		"NOMBRE DEL ESTUDIANTE": strings.ToUpper(student.FullName),
		"NOMBRE_EVENTO":         event.Name,
		"NOMBRE CURSO":          event.Name,
		"TIPO_EVENTO":           kind,
		"TIPO DE EVENTO":        kind,
		"MODALIDAD":             titleCase(event.Modality),
		"DURACION":              fmt.Sprintf("%d", event.DurationHours),
		"HORAS":                 fmt.Sprintf("%d", event.DurationHours),
		"FECHA_INICIO":          formatDateES(event.StartDate),
		"FECHA_FIN":             formatDateES(event.EndDate),
		"FECHA_EMISION":         formatDateES(event.IssueDate),
		"FECHA DE EMISION":      formatDateES(event.IssueDate),
		"OBJETIVO_PROGRAMA":     event.ProgramObjective,
		"OBJETIVO DEL PROGRAMA": event.ProgramObjective,
		"CONTENIDO_PROGRAMA":    event.ProgramContent,
		"DIRECCION":             direction.Name,
	}
}
