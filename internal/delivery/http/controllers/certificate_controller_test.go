package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkcertificates/internal/domain"
)

// fakePipeline scripts each operation's outcome.
type fakePipeline struct {
	batch     *domain.Batch
	status    *domain.BatchStatus
	enqueued  int
	err       error
	lastEvent string
	lastCert  string
}

func (f *fakePipeline) StartBatchGeneration(ctx context.Context, eventID string) (*domain.Batch, error) {
	f.lastEvent = eventID
	return f.batch, f.err
}

func (f *fakePipeline) StartBatchSend(ctx context.Context, eventID string) (int, error) {
	f.lastEvent = eventID
	return f.enqueued, f.err
}

func (f *fakePipeline) Regenerate(ctx context.Context, certificateID string) error {
	f.lastCert = certificateID
	return f.err
}

func (f *fakePipeline) GenerateCertificate(ctx context.Context, certificateID string) error {
	return f.err
}

func (f *fakePipeline) SendCertificate(ctx context.Context, certificateID string) error {
	return f.err
}

func (f *fakePipeline) BatchStatus(ctx context.Context, eventID string) (*domain.BatchStatus, error) {
	f.lastEvent = eventID
	return f.status, f.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func newCertificateMux(pipeline domain.CertificatePipeline) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewCertificateController(logger, pipeline, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /certificates/generate", ctrl.GenerateBatch)
	mux.HandleFunc("POST /certificates/send", ctrl.SendBatch)
	mux.HandleFunc("POST /certificates/{certificateID}/regenerate", ctrl.Regenerate)
	mux.HandleFunc("GET /events/{eventID}/batch", ctrl.BatchStatus)
	return mux
}

func TestGenerateBatch(t *testing.T) {
	pipeline := &fakePipeline{batch: &domain.Batch{EventID: "ev-1", Total: 3, State: domain.BatchStatePending}}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", strings.NewReader(`{"event_id":"ev-1"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ev-1", pipeline.lastEvent)
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var batch domain.Batch
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, 3, batch.Total)
}

func TestGenerateBatch_Validation(t *testing.T) {
	mux := newCertificateMux(&fakePipeline{})

	tests := []struct {
		name string
		body string
	}{
		{"missing event_id", `{}`},
		{"unknown field", `{"event_id":"ev-1","extra":true}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/certificates/generate", strings.NewReader(tt.body))
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "bad_request", env.Error.Code)
		})
	}
}

func TestGenerateBatch_StorageUnavailable(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("%w: disk full", domain.ErrStorageUnavailable)}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", strings.NewReader(`{"event_id":"ev-1"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "storage_unavailable", env.Error.Code)
}

func TestSendBatch(t *testing.T) {
	pipeline := &fakePipeline{enqueued: 5}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/certificates/send", strings.NewReader(`{"event_id":"ev-1"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var resp SendBatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 5, resp.Enqueued)
}

func TestSendBatch_QuotaExceeded(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("%w: 10 remaining, 50 requested", domain.ErrQuotaExceeded)}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/certificates/send", strings.NewReader(`{"event_id":"ev-1"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "quota_exceeded", env.Error.Code)
	assert.Contains(t, env.Error.Message, "50 requested")
}

func TestBatchStatus(t *testing.T) {
	pipeline := &fakePipeline{status: &domain.BatchStatus{Total: 10, Processed: 4, Percent: 40, State: domain.BatchStateProcessing}}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/ev-1/batch", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ev-1", pipeline.lastEvent)
	env := decodeEnvelope(t, rec)
	var status domain.BatchStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 40, status.Percent)
}

func TestBatchStatus_NotFound(t *testing.T) {
	pipeline := &fakePipeline{err: domain.ErrNotFound}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/ev-1/batch", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestRegenerate(t *testing.T) {
	pipeline := &fakePipeline{}
	mux := newCertificateMux(pipeline)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/certificates/cert-7/regenerate", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "cert-7", pipeline.lastCert)
}
