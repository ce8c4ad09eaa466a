// @title Bulk Certificates API
// @version 1.0
// @description Bulk generation, delivery and tracking of event certificates.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"bulkcertificates/config"
	"bulkcertificates/internal/adapters/email"
	"bulkcertificates/internal/convert"
	delivery "bulkcertificates/internal/delivery/http"
	"bulkcertificates/internal/delivery/http/controllers"
	"bulkcertificates/internal/delivery/http/middleware"
	"bulkcertificates/internal/doctmpl"
	"bulkcertificates/internal/repository/postgres"
	"bulkcertificates/internal/services"
	"bulkcertificates/internal/storage"
	"bulkcertificates/internal/worker"
)

const serviceTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewLocal(cfg.StorageRoot)
	if err != nil {
		logger.Error("init storage", "err", err)
		os.Exit(1)
	}

	converter := convert.New(cfg.ConverterBinary, cfg.ConvertTimeout)
	if !converter.Available(context.Background()) {
		// Generation requests will fail until the binary is installed, but the
		// rest of the API works.
		logger.Warn("pdf converter not available", "binary", cfg.ConverterBinary)
	}

	mailer, err := email.NewMailer(logger, email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		},
	})
	if err != nil {
		logger.Error("init mailer", "err", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	studentRepo := postgres.NewStudentRepository(db)
	directionRepo := postgres.NewDirectionRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	certRepo := postgres.NewCertificateRepository(db)
	batchRepo := postgres.NewBatchRepository(db)
	campaignRepo := postgres.NewCampaignRepository(db)
	quota := postgres.NewQuotaRepository(db, cfg.EmailDailyLimit)

	// Services
	pool := worker.NewPool(logger, cfg.WorkerCount)
	defer pool.Shutdown()

	eventService := services.NewEventService(eventRepo, studentRepo, directionRepo, serviceTimeout)
	templateService := services.NewTemplateService(templateRepo, directionRepo, store, serviceTimeout)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())
	pipeline := services.NewCertificatePipeline(
		certRepo, studentRepo, eventRepo, directionRepo, batchRepo,
		templateService, emailService, quota, store, converter, doctmpl.New(),
		pool, logger, serviceTimeout,
	)
	archiveService := services.NewArchiveService(certRepo, studentRepo, store, serviceTimeout)
	campaignService := services.NewCampaignService(campaignRepo, eventRepo, studentRepo, mailer, quota, logger, serviceTimeout)

	// Nightly quota retention cleanup.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("30 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		removed, err := quota.Cleanup(ctx, cfg.QuotaRetentionDays)
		if err != nil {
			logger.Error("quota cleanup", "err", err)
			return
		}
		logger.Info("quota cleanup", "removed", removed)
	})
	if err != nil {
		logger.Error("schedule quota cleanup", "err", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP
	mux := delivery.NewRouter(
		controllers.NewEventController(logger, eventService),
		controllers.NewCertificateController(logger, pipeline, archiveService),
		controllers.NewTemplateController(logger, templateService),
		controllers.NewCampaignController(logger, campaignService),
		controllers.NewHealthController(logger, db, store, converter),
	)
	handler := middleware.LoggingMiddleware(logger, mux)
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
