package controllers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
	"bulkcertificates/internal/services"
)

type CertificateController struct {
	Logger   *slog.Logger
	Pipeline domain.CertificatePipeline
	Archive  *services.ArchiveService
}

func NewCertificateController(logger *slog.Logger, pipeline domain.CertificatePipeline, archive *services.ArchiveService) *CertificateController {
	return &CertificateController{
		Logger:   logger,
		Pipeline: pipeline,
		Archive:  archive,
	}
}

// GenerateBatchRequest is the request body for POST /certificates/generate.
type GenerateBatchRequest struct {
	EventID string `json:"event_id"`
}

// Validate implements Validator.
func (g GenerateBatchRequest) Validate() []string {
	if g.EventID == "" {
		return []string{"event_id is required"}
	}
	return nil
}

// GenerateBatch godoc
// @Summary Start certificate generation for an event
// @Description Resets the event's batch and enqueues one generation task per registered student.
// @Tags certificates
// @Accept json
// @Produce json
// @Param request body GenerateBatchRequest true "Target event"
// @Success 202 {object} helpers.APIResponse "data contains the batch"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: storage_unavailable"
// @Router /certificates/generate [post]
func (c *CertificateController) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req GenerateBatchRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	batch, err := c.Pipeline.StartBatchGeneration(r.Context(), req.EventID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "start generation failed", "event_id", req.EventID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, batch)
}

// SendBatchRequest is the request body for POST /certificates/send.
type SendBatchRequest struct {
	EventID string `json:"event_id"`
}

// Validate implements Validator.
func (s SendBatchRequest) Validate() []string {
	if s.EventID == "" {
		return []string{"event_id is required"}
	}
	return nil
}

// SendBatchResponse is the response body for POST /certificates/send.
type SendBatchResponse struct {
	Enqueued int `json:"enqueued"`
}

// SendBatch godoc
// @Summary Email every completed certificate of an event
// @Description Fails fast when the whole batch would not fit in today's email quota.
// @Tags certificates
// @Accept json
// @Produce json
// @Param request body SendBatchRequest true "Target event"
// @Success 202 {object} helpers.APIResponse "data contains the enqueued count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 429 {object} helpers.APIResponse "error.code: quota_exceeded"
// @Router /certificates/send [post]
func (c *CertificateController) SendBatch(w http.ResponseWriter, r *http.Request) {
	var req SendBatchRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	enqueued, err := c.Pipeline.StartBatchSend(r.Context(), req.EventID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "start send failed", "event_id", req.EventID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, SendBatchResponse{Enqueued: enqueued})
}

// BatchStatus godoc
// @Summary Poll batch progress for an event
// @Tags certificates
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the batch status"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/batch [get]
func (c *CertificateController) BatchStatus(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	status, err := c.Pipeline.BatchStatus(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, status)
}

// Regenerate godoc
// @Summary Reset one certificate and regenerate it
// @Tags certificates
// @Produce json
// @Param certificateID path string true "Certificate ID"
// @Success 202 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: storage_unavailable"
// @Router /certificates/{certificateID}/regenerate [post]
func (c *CertificateController) Regenerate(w http.ResponseWriter, r *http.Request) {
	certificateID := r.PathValue("certificateID")
	if err := c.Pipeline.Regenerate(r.Context(), certificateID); err != nil {
		c.Logger.ErrorContext(r.Context(), "regenerate failed", "certificate_id", certificateID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, map[string]string{"certificate_id": certificateID})
}

// DownloadArchive godoc
// @Summary Download every generated certificate of an event as one zip
// @Tags certificates
// @Produce application/zip
// @Param eventID path string true "Event ID"
// @Success 200 {file} binary "zip archive"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events/{eventID}/certificates/archive [get]
func (c *CertificateController) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")

	// Buffer the archive so an empty or failed run can still answer with the
	// JSON error envelope instead of a truncated zip.
	var buf bytes.Buffer
	if err := c.Archive.WriteZip(r.Context(), eventID, &buf); err != nil {
		c.Logger.ErrorContext(r.Context(), "archive download failed", "event_id", eventID, "err", err)
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "certificados_"+eventID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
