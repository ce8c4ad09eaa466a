package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
)

// maxRosterUploadBytes bounds the accepted roster file size (5 MiB).
const maxRosterUploadBytes = 5 << 20

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	DirectionID      string  `json:"direction_id"`
	VariantID        *string `json:"variant_id,omitempty"`
	Name             string  `json:"name"`
	Modality         string  `json:"modality"`
	Kind             string  `json:"kind"`
	KindDetail       string  `json:"kind_detail"`
	DurationHours    int     `json:"duration_hours"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	IssueDate        string  `json:"issue_date"`
	ProgramObjective string  `json:"program_objective"`
	ProgramContent   string  `json:"program_content"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.DirectionID == "" {
		errs = append(errs, "direction_id is required")
	}
	if c.Modality == "" {
		errs = append(errs, "modality is required")
	}
	if c.Kind == "" {
		errs = append(errs, "kind is required")
	}
	if c.DurationHours <= 0 {
		errs = append(errs, "duration_hours must be positive")
	}
	for _, d := range []struct{ name, value string }{
		{"start_date", c.StartDate}, {"end_date", c.EndDate},
	} {
		if d.value == "" {
			errs = append(errs, d.name+" is required")
			continue
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			errs = append(errs, d.name+" must be YYYY-MM-DD")
		}
	}
	if c.IssueDate != "" {
		if _, err := time.Parse("2006-01-02", c.IssueDate); err != nil {
			errs = append(errs, "issue_date must be YYYY-MM-DD")
		}
	}
	return errs
}

// CreateEventSuccessResponse is the success response envelope for POST /events (201).
type CreateEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create a training event. Dates use YYYY-MM-DD; issue_date defaults to end_date.
// @Tags events
// @Accept json
// @Produce json
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	event := &domain.Event{
		DirectionID:      req.DirectionID,
		VariantID:        req.VariantID,
		Name:             req.Name,
		Modality:         req.Modality,
		Kind:             req.Kind,
		KindDetail:       req.KindDetail,
		DurationHours:    req.DurationHours,
		ProgramObjective: req.ProgramObjective,
		ProgramContent:   req.ProgramContent,
	}
	event.StartDate, _ = time.Parse("2006-01-02", req.StartDate)
	event.EndDate, _ = time.Parse("2006-01-02", req.EndDate)
	if req.IssueDate != "" {
		event.IssueDate, _ = time.Parse("2006-01-02", req.IssueDate)
	}

	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEventResponse is the response body for GET /events/{eventID}.
type GetEventResponse struct {
	Event    *domain.Event     `json:"event"`
	Students []*domain.Student `json:"students"`
}

// GetEvent godoc
// @Summary Get an event with its roster
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains event and students"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	event, students, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, GetEventResponse{Event: event, Students: students})
}

// ImportRosterResponse is the response body for POST /events/{eventID}/roster.
type ImportRosterResponse struct {
	Imported int               `json:"imported"`
	Warnings []string          `json:"warnings"`
	Students []*domain.Student `json:"students"`
}

// ImportRoster godoc
// @Summary Upload a roster spreadsheet
// @Description Accepts a multipart form with an xlsx file under the "file" field (max 5 MiB). The header row is auto-detected.
// @Tags events
// @Accept mpfd
// @Produce json
// @Param eventID path string true "Event ID"
// @Param file formData file true "Roster xlsx"
// @Success 201 {object} helpers.APIResponse "data contains import summary"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/roster [post]
func (c *EventController) ImportRoster(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")

	r.Body = http.MaxBytesReader(w, r.Body, maxRosterUploadBytes)
	if err := r.ParseMultipartForm(maxRosterUploadBytes); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest,
			"roster upload must be a multipart form of at most 5 MiB")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing form field \"file\"")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "read uploaded file: "+err.Error())
		return
	}

	students, warnings, err := c.Service.ImportRoster(r.Context(), eventID, data)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "roster import failed", "event_id", eventID, "err", err)
		writeDomainError(w, err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, ImportRosterResponse{
		Imported: len(students),
		Warnings: warnings,
		Students: students,
	})
}

// DeleteStudent godoc
// @Summary Remove a student from an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Param studentID path string true "Student ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/students/{studentID} [delete]
func (c *EventController) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	studentID := r.PathValue("studentID")
	if err := c.Service.DeleteStudent(r.Context(), eventID, studentID); err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": studentID})
}
