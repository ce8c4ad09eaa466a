package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
)

type HealthController struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Store     domain.FileStore
	Converter domain.Converter
}

func NewHealthController(logger *slog.Logger, db *sql.DB, store domain.FileStore, converter domain.Converter) *HealthController {
	return &HealthController{
		Logger:    logger,
		DB:        db,
		Store:     store,
		Converter: converter,
	}
}

// HealthResponse reports per-dependency health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Storage   string `json:"storage"`
	Converter string `json:"converter"`
}

// Health godoc
// @Summary Service health
// @Description Reports database, storage and converter health. Returns 503 when the database or storage is down; a missing converter only degrades the status.
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains per-dependency status"
// @Failure 503 {object} helpers.APIResponse
// @Router /healthz [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok", Storage: "ok", Converter: "ok"}
	status := http.StatusOK

	if err := c.DB.PingContext(r.Context()); err != nil {
		resp.Database = err.Error()
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if err := c.Store.HealthCheck(); err != nil {
		resp.Storage = err.Error()
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if !c.Converter.Available(r.Context()) {
		// Generation requests fail individually; the service itself stays up.
		resp.Converter = "unavailable"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}
	helpers.WriteJSONSuccess(w, status, resp)
}
