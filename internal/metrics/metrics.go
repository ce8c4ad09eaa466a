// Package metrics exposes Prometheus counters for the certificate pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CertificatesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certificates_generated_total",
		Help: "Certificates that reached the completed state.",
	})
	CertificatesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certificates_failed_total",
		Help: "Certificates that ended in the failed state.",
	})
	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certificate_emails_sent_total",
		Help: "Certificate delivery emails accepted by the mail provider.",
	})
	EmailSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certificate_email_send_failures_total",
		Help: "Certificate delivery attempts that returned an error.",
	})
	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_quota_rejections_total",
		Help: "Send operations refused by the daily email quota.",
	})
	ConversionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdf_conversion_duration_seconds",
		Help:    "Wall time of docx to PDF conversions.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
