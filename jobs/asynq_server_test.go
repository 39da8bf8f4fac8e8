package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	payload ReportWarmupPayload
	err     error
	called  bool
}

func (s *stubEnqueuer) EnqueueReportWarmup(ctx context.Context, payload ReportWarmupPayload) (*asynq.TaskInfo, error) {
	s.called = true
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer WarmupEnqueuer) http.Handler {
	h := NewHandler(nil, enqueuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestWarmupEnqueuesDefaultYear(t *testing.T) {
	stub := &stubEnqueuer{}
	router := newJobsRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, stub.called)
	assert.Empty(t, stub.payload.Years)
	assert.Contains(t, rec.Body.String(), "task-1")
}

func TestWarmupEnqueuesRequestedYears(t *testing.T) {
	stub := &stubEnqueuer{}
	router := newJobsRouter(stub)

	body := strings.NewReader(`{"years":["2023-2024","2024-2025"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"2023-2024", "2024-2025"}, stub.payload.Years)
}

func TestWarmupRejectsBadYear(t *testing.T) {
	stub := &stubEnqueuer{}
	router := newJobsRouter(stub)

	body := strings.NewReader(`{"years":["2024"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestWarmupRejectsMalformedBody(t *testing.T) {
	stub := &stubEnqueuer{}
	router := newJobsRouter(stub)

	body := strings.NewReader(`{"years":`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestWarmupUnavailableWithoutQueue(t *testing.T) {
	router := newJobsRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthWithoutInspector(t *testing.T) {
	router := newJobsRouter(&stubEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":0`)
}
