package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bulkcertificates/internal/domain"
	"bulkcertificates/internal/metrics"
	"bulkcertificates/internal/storage"
	"bulkcertificates/internal/worker"
)

// Retry budgets. Generation failures are mostly converter hiccups; delivery
// failures are mostly provider throttling, which deserves more patience.
const (
	maxGenerateAttempts = 3
	maxSendAttempts     = 5
)

type certificatePipeline struct {
	certRepo       domain.CertificateRepository
	studentRepo    domain.StudentRepository
	eventRepo      domain.EventRepository
	directionRepo  domain.DirectionRepository
	batchRepo      domain.BatchRepository
	templates      domain.TemplateService
	emails         domain.EmailService
	quota          domain.EmailQuota
	store          domain.FileStore
	converter      domain.Converter
	engine         domain.DocumentEngine
	queue          worker.Queue
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewCertificatePipeline(
	certRepo domain.CertificateRepository,
	studentRepo domain.StudentRepository,
	eventRepo domain.EventRepository,
	directionRepo domain.DirectionRepository,
	batchRepo domain.BatchRepository,
	templates domain.TemplateService,
	emails domain.EmailService,
	quota domain.EmailQuota,
	store domain.FileStore,
	converter domain.Converter,
	engine domain.DocumentEngine,
	queue worker.Queue,
	logger *slog.Logger,
	timeout time.Duration,
) domain.CertificatePipeline {
	return &certificatePipeline{
		certRepo:       certRepo,
		studentRepo:    studentRepo,
		eventRepo:      eventRepo,
		directionRepo:  directionRepo,
		batchRepo:      batchRepo,
		templates:      templates,
		emails:         emails,
		quota:          quota,
		store:          store,
		converter:      converter,
		engine:         engine,
		queue:          queue,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// StartBatchGeneration resets the event's batch, upserts a pending
// certificate per student and enqueues one generation task each. Storage and
// template availability are checked before any row is touched.
func (p *certificatePipeline) StartBatchGeneration(ctx context.Context, eventID string) (*domain.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, p.contextTimeout)
	defer cancel()

	if err := p.store.HealthCheck(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStorageUnavailable, err.Error())
	}

	event, err := p.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := p.templates.ResolveForEvent(ctx, event); err != nil {
		return nil, err
	}

	students, err := p.studentRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("%w: event has no students", domain.ErrInvalidInput)
	}

	batch, err := p.batchRepo.Reset(ctx, eventID, len(students), time.Now())
	if err != nil {
		return nil, fmt.Errorf("reset batch: %w", err)
	}

	for _, student := range students {
		cert, err := p.certRepo.UpsertPending(ctx, eventID, student.ID)
		if err != nil {
			return nil, fmt.Errorf("upsert certificate for student %s: %w", student.ID, err)
		}
		p.enqueueGeneration(cert.ID)
	}
	return batch, nil
}

func (p *certificatePipeline) enqueueGeneration(certificateID string) {
	p.queue.Submit(worker.Task{
		Name: "generate-certificate",
		Run: func(ctx context.Context, attempt int) error {
			return p.GenerateCertificate(ctx, certificateID)
		},
	}, worker.RetryPolicy{
		MaxAttempts: maxGenerateAttempts,
		OnGiveUp: func(err error) {
			p.failCertificate(certificateID, err.Error())
		},
	})
}

// GenerateCertificate renders, converts and stores one certificate. The row
// moves to generating before any file I/O so an observer never sees stale
// artifacts on a row claimed by a worker. Transient failures return plain
// errors for retry; everything else is permanent. On success delivery is
// enqueued immediately; per-send quota bookkeeping guards the daily cap.
func (p *certificatePipeline) GenerateCertificate(ctx context.Context, certificateID string) error {
	cert, err := p.certRepo.GetByID(ctx, certificateID)
	if err != nil {
		return worker.Permanent(err)
	}
	event, err := p.eventRepo.GetByID(ctx, cert.EventID)
	if err != nil {
		return worker.Permanent(err)
	}
	student, err := p.studentRepo.GetByID(ctx, cert.StudentID)
	if err != nil {
		return worker.Permanent(err)
	}
	direction, err := p.directionRepo.GetByID(ctx, event.DirectionID)
	if err != nil {
		return worker.Permanent(err)
	}

	if err := p.certRepo.MarkGenerating(ctx, certificateID); err != nil {
		return worker.Permanent(err)
	}

	templatePath, err := p.templates.ResolveForEvent(ctx, event)
	if err != nil {
		return worker.Permanent(err)
	}
	templateFile, err := p.readStored(templatePath)
	if err != nil {
		return p.classify(fmt.Errorf("read template: %w", err))
	}

	vars := CertificateVariables(event, student, direction)
	rendered, warnings, err := p.engine.Substitute(templateFile, vars)
	if err != nil {
		return worker.Permanent(fmt.Errorf("substitute template: %w", err))
	}
	for _, w := range warnings {
		p.logger.Warn("template substitution warning",
			"certificate_id", certificateID, "warning", w)
	}

	docxRel, pdfRel := storage.CertificatePaths(cert.EventID, cert.StudentID)
	if err := p.store.Save(docxRel, bytes.NewReader(rendered)); err != nil {
		return p.classify(fmt.Errorf("store docx: %w", err))
	}

	started := time.Now()
	pdfAbs, err := p.converter.Convert(ctx, p.store.AbsPath(docxRel))
	if err != nil {
		return p.classify(fmt.Errorf("convert to pdf: %w", err))
	}
	metrics.ConversionSeconds.Observe(time.Since(started).Seconds())
	if pdfAbs != p.store.AbsPath(pdfRel) {
		// The converter names output after the source file; with the fixed
		// certificate.docx layout this indicates a storage misconfiguration.
		return worker.Permanent(fmt.Errorf("unexpected pdf output path %s", pdfAbs))
	}

	if err := p.certRepo.MarkCompleted(ctx, certificateID, docxRel, pdfRel); err != nil {
		return worker.Permanent(err)
	}
	metrics.CertificatesGenerated.Inc()
	p.recomputeBatch(ctx, cert.EventID)
	p.enqueueSend(certificateID)
	return nil
}

// classify routes an error to retry or permanent failure based on whether it
// looks transient.
func (p *certificatePipeline) classify(err error) error {
	if domain.IsRecoverable(err) {
		return err
	}
	return worker.Permanent(err)
}

// failCertificate marks the row failed outside any request context.
func (p *certificatePipeline) failCertificate(certificateID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.contextTimeout)
	defer cancel()

	cert, err := p.certRepo.GetByID(ctx, certificateID)
	if err != nil {
		p.logger.Error("load certificate for failure record", "certificate_id", certificateID, "err", err)
		return
	}
	if err := p.certRepo.MarkFailed(ctx, certificateID, message); err != nil {
		p.logger.Error("mark certificate failed", "certificate_id", certificateID, "err", err)
		return
	}
	metrics.CertificatesFailed.Inc()
	p.recomputeBatch(ctx, cert.EventID)
}

// StartBatchSend enqueues delivery for every certificate still sitting at
// completed, after a fail-fast quota check sized to the whole batch. Freshly
// generated certificates are delivered automatically; this is the manual path
// for rows whose automatic delivery was exhausted or interrupted.
func (p *certificatePipeline) StartBatchSend(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.contextTimeout)
	defer cancel()

	certs, err := p.certRepo.ListByEventAndState(ctx, eventID, domain.CertStateCompleted)
	if err != nil {
		return 0, fmt.Errorf("list completed certificates: %w", err)
	}
	if len(certs) == 0 {
		return 0, fmt.Errorf("%w: event has no completed certificates to send", domain.ErrInvalidInput)
	}

	allowed, _, message, err := p.quota.CanSend(ctx, len(certs))
	if err != nil {
		return 0, fmt.Errorf("check email quota: %w", err)
	}
	if !allowed {
		metrics.QuotaRejections.Inc()
		return 0, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, message)
	}

	if err := p.batchRepo.SetState(ctx, eventID, domain.BatchStateProcessing); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("set batch state: %w", err)
	}

	for _, cert := range certs {
		p.enqueueSend(cert.ID)
	}
	return len(certs), nil
}

func (p *certificatePipeline) enqueueSend(certificateID string) {
	p.queue.Submit(worker.Task{
		Name: "send-certificate",
		Run: func(ctx context.Context, attempt int) error {
			return p.SendCertificate(ctx, certificateID)
		},
	}, worker.RetryPolicy{
		MaxAttempts: maxSendAttempts,
		OnGiveUp: func(err error) {
			message := fmt.Sprintf("email send failed after %d attempts: %s", maxSendAttempts, err.Error())
			p.failCertificate(certificateID, message)
		},
	})
}

// SendCertificate emails one certificate's PDF to its student. The row moves
// to sending_email first; a delivery error records the attempt and returns
// for retry, exhaustion is handled by the task's give-up hook.
func (p *certificatePipeline) SendCertificate(ctx context.Context, certificateID string) error {
	cert, err := p.certRepo.GetByID(ctx, certificateID)
	if err != nil {
		return worker.Permanent(err)
	}
	switch cert.State {
	case domain.CertStateCompleted, domain.CertStateSendingEmail:
	case domain.CertStateSent:
		return nil
	default:
		return worker.Permanent(fmt.Errorf("certificate in state %q cannot be sent", cert.State))
	}
	if cert.PDFPath == nil || !p.store.Exists(*cert.PDFPath) {
		return worker.Permanent(fmt.Errorf("certificate pdf is missing"))
	}

	event, err := p.eventRepo.GetByID(ctx, cert.EventID)
	if err != nil {
		return worker.Permanent(err)
	}
	student, err := p.studentRepo.GetByID(ctx, cert.StudentID)
	if err != nil {
		return worker.Permanent(err)
	}
	direction, err := p.directionRepo.GetByID(ctx, event.DirectionID)
	if err != nil {
		return worker.Permanent(err)
	}

	if err := p.certRepo.MarkSendingEmail(ctx, certificateID); err != nil {
		return worker.Permanent(err)
	}

	pdf, err := p.readStored(*cert.PDFPath)
	if err != nil {
		return worker.Permanent(fmt.Errorf("read pdf: %w", err))
	}

	data := &domain.CertificateEmailData{
		FullName:      student.FullName,
		EventName:     event.Name,
		StartDate:     formatDateES(event.StartDate),
		EndDate:       formatDateES(event.EndDate),
		DurationHours: event.DurationHours,
		Modality:      titleCase(event.Modality),
		DirectionName: direction.Name,
	}
	attachment := domain.Attachment{
		Filename:    attachmentFilename(student.FullName),
		ContentType: "application/pdf",
		Data:        pdf,
	}
	if err := p.emails.SendCertificate(ctx, student.Email, data, attachment); err != nil {
		metrics.EmailSendFailures.Inc()
		if recErr := p.certRepo.RecordSendFailure(ctx, certificateID, err.Error()); recErr != nil {
			p.logger.Error("record send failure", "certificate_id", certificateID, "err", recErr)
		}
		return err
	}

	if err := p.quota.Increment(ctx, 1); err != nil {
		// The email already left; a quota bookkeeping failure must not fail
		// the certificate.
		p.logger.Warn("quota increment after send", "certificate_id", certificateID, "err", err)
	}
	if err := p.certRepo.MarkSent(ctx, certificateID, time.Now()); err != nil {
		return worker.Permanent(err)
	}
	metrics.EmailsSent.Inc()
	p.recomputeBatch(ctx, cert.EventID)
	return nil
}

// Regenerate resets one certificate to pending and re-enqueues generation.
func (p *certificatePipeline) Regenerate(ctx context.Context, certificateID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.contextTimeout)
	defer cancel()

	cert, err := p.certRepo.GetByID(ctx, certificateID)
	if err != nil {
		return err
	}
	if err := p.store.HealthCheck(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageUnavailable, err.Error())
	}
	reset, err := p.certRepo.UpsertPending(ctx, cert.EventID, cert.StudentID)
	if err != nil {
		return fmt.Errorf("reset certificate: %w", err)
	}
	p.recomputeBatch(ctx, cert.EventID)
	p.enqueueGeneration(reset.ID)
	return nil
}

func (p *certificatePipeline) BatchStatus(ctx context.Context, eventID string) (*domain.BatchStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, p.contextTimeout)
	defer cancel()

	batch, err := p.batchRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &domain.BatchStatus{
		Total:     batch.Total,
		Processed: batch.Processed,
		Succeeded: batch.Succeeded,
		Failed:    batch.Failed,
		Percent:   batch.Percent(),
		State:     batch.State,
	}, nil
}

// recomputeBatch rebuilds batch counters from certificate rows. Failures are
// logged, not returned: progress bookkeeping never fails a certificate.
func (p *certificatePipeline) recomputeBatch(ctx context.Context, eventID string) {
	counts, err := p.certRepo.CountsByEvent(ctx, eventID)
	if err != nil {
		p.logger.Error("count certificates", "event_id", eventID, "err", err)
		return
	}
	batch, err := p.batchRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.Error("load batch", "event_id", eventID, "err", err)
		}
		return
	}
	batch.Total = counts.Total
	batch.Succeeded = counts.Succeeded
	batch.Failed = counts.Failed
	batch.Processed = counts.Succeeded + counts.Failed
	batch.State = batch.DeriveState()
	if err := p.batchRepo.Update(ctx, batch); err != nil {
		p.logger.Error("update batch", "event_id", eventID, "err", err)
	}
}

func (p *certificatePipeline) readStored(rel string) ([]byte, error) {
	rc, err := p.store.Open(rel)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// attachmentFilename builds "Certificado_<name>.pdf" from the student's name,
// keeping only filesystem-safe characters.
func attachmentFilename(fullName string) string {
	sanitized := sanitizeFilename(fullName)
	if sanitized == "" {
		sanitized = "certificado"
	}
	return "Certificado_" + sanitized + ".pdf"
}
