package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/expert-revision/internal/metrics"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func newTestServer(db DatabasePinger) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	metrics.InitRegistry()
	return NewServer(Config{
		ServiceName: "expert-revision",
		Version:     "test",
		Port:        "0",
		Logger:      logger,
		DB:          db,
		Metrics:     metrics.Handler(),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(nil)

	rec := get(t, s.Handler(), "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "expert-revision", resp.Service)
	assert.Equal(t, "test", resp.Version)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleLive(t *testing.T) {
	rec := get(t, newTestServer(nil).Handler(), "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		db         DatabasePinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "not marked ready",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "not_ready"},
		},
		{
			name:       "ready without database",
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok"},
		},
		{
			name:       "ready with healthy database",
			ready:      true,
			db:         stubPinger{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok", "database": "ok"},
		},
		{
			name:       "database down",
			ready:      true,
			db:         stubPinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "database": "error: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.db)
			s.SetReady(tt.ready)

			rec := get(t, s.Handler(), "/ready")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

type stubEngine struct {
	experts  int
	sweptAt  time.Time
	sweepErr error
}

func (e stubEngine) TrackedExperts() int { return e.experts }

func (e stubEngine) LastSweep() (time.Time, error) { return e.sweptAt, e.sweepErr }

func TestHandleReadyEngineStatus(t *testing.T) {
	swept := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		engine        stubEngine
		wantStatus    int
		wantSweep     string
		wantLastSweep string
	}{
		{
			name:       "no sweep yet",
			engine:     stubEngine{experts: 2},
			wantStatus: http.StatusOK,
			wantSweep:  "pending",
		},
		{
			name:          "last sweep succeeded",
			engine:        stubEngine{experts: 2, sweptAt: swept},
			wantStatus:    http.StatusOK,
			wantSweep:     "ok",
			wantLastSweep: "2026-10-18T03:00:00Z",
		},
		{
			name:          "last sweep failed",
			engine:        stubEngine{experts: 2, sweptAt: swept, sweepErr: errors.New("store unreachable")},
			wantStatus:    http.StatusServiceUnavailable,
			wantSweep:     "error: store unreachable",
			wantLastSweep: "2026-10-18T03:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{ServiceName: "expert-revision", Port: "0", Engine: tt.engine})
			s.SetReady(true)

			rec := get(t, s.Handler(), "/ready")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSweep, resp.Checks["effectiveness_sweep"])
			assert.Equal(t, tt.wantLastSweep, resp.LastSweep)
			require.NotNil(t, resp.TrackedExperts)
			assert.Equal(t, 2, *resp.TrackedExperts)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)
	metrics.RecordLearningUpdate("beta_calibration")

	rec := get(t, s.Handler(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "expert_revision_learning_updates_total")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s := NewServer(Config{ServiceName: "expert-revision", Port: "0"})

	rec := get(t, s.Handler(), "/metrics")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	s := NewServer(Config{ServiceName: "expert-revision"})
	assert.NoError(t, s.Shutdown())
}
