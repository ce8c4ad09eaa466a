package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"bulkcertificates/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	eventController *controllers.EventController,
	certificateController *controllers.CertificateController,
	templateController *controllers.TemplateController,
	campaignController *controllers.CampaignController,
	healthController *controllers.HealthController,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Events and rosters
	mux.HandleFunc("POST /events", eventController.CreateEvent)
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("POST /events/{eventID}/roster", eventController.ImportRoster)
	mux.HandleFunc("DELETE /events/{eventID}/students/{studentID}", eventController.DeleteStudent)

	// Certificate pipeline
	mux.HandleFunc("POST /certificates/generate", certificateController.GenerateBatch)
	mux.HandleFunc("POST /certificates/send", certificateController.SendBatch)
	mux.HandleFunc("POST /certificates/{certificateID}/regenerate", certificateController.Regenerate)
	mux.HandleFunc("GET /events/{eventID}/batch", certificateController.BatchStatus)
	mux.HandleFunc("GET /events/{eventID}/certificates/archive", certificateController.DownloadArchive)

	// Templates
	mux.HandleFunc("POST /directions/{directionID}/templates", templateController.UploadBase)
	mux.HandleFunc("POST /templates/{templateID}/variants", templateController.UploadVariant)
	mux.HandleFunc("GET /templates/{templateID}/variants", templateController.ListVariants)
	mux.HandleFunc("POST /templates/{templateID}/activate", templateController.Activate)
	mux.HandleFunc("POST /templates/layout/preview", templateController.PreviewLayout)

	// Campaigns
	mux.HandleFunc("POST /events/{eventID}/campaigns", campaignController.Create)
	mux.HandleFunc("GET /campaigns/{campaignID}", campaignController.Get)
	mux.HandleFunc("POST /campaigns/{campaignID}/send", campaignController.Send)
	mux.HandleFunc("POST /campaigns/{campaignID}/retry", campaignController.RetryFailed)

	// Operability
	mux.HandleFunc("GET /healthz", healthController.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
