// Package health serves liveness, readiness and metrics endpoints for the
// calibration engine.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// EngineStatus reports the calibration engine's state to the readiness check.
type EngineStatus interface {
	TrackedExperts() int
	LastSweep() (time.Time, error)
}

// HealthResponse represents the JSON response for /health and /live.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for /ready.
type ReadyResponse struct {
	Status         string            `json:"status"`
	Service        string            `json:"service"`
	Checks         map[string]string `json:"checks,omitempty"`
	TrackedExperts *int              `json:"tracked_experts,omitempty"`
	LastSweep      string            `json:"last_sweep,omitempty"`
	Duration       string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	DB          DatabasePinger
	Engine      EngineStatus
	// Metrics is served on MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

// Server serves the engine's operational endpoints.
type Server struct {
	cfg    Config
	server *http.Server

	mu    sync.RWMutex
	ready bool
}

// NewServer creates a new health server. The port falls back to
// EXPERT_REVISION_HEALTH_PORT, then 8080.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = os.Getenv("EXPERT_REVISION_HEALTH_PORT")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{cfg: cfg}
}

// SetReady marks the engine as started.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady reports whether SetReady(true) has been called.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	if s.cfg.Metrics != nil {
		mux.Handle(s.cfg.MetricsPath, s.cfg.Metrics)
	}
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log(logrus.Fields{"port": s.cfg.Port, "service": s.cfg.ServiceName}).Info("Health server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log(nil).WithError(err).Error("Health server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.log(nil).WithError(err).Warn("Health server shutdown error")
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.log(nil).Info("Health server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) log(fields logrus.Fields) *logrus.Entry {
	logger := s.cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return logger.WithFields(fields)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

// handleReady reports not ready until the engine has started, while the
// database is unreachable, or while the last effectiveness sweep failed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := ReadyResponse{
		Service: s.cfg.ServiceName,
		Checks:  make(map[string]string),
	}
	healthy := true

	if s.IsReady() {
		resp.Checks["service"] = "ok"
	} else {
		resp.Checks["service"] = "not_ready"
		healthy = false
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			resp.Checks["database"] = fmt.Sprintf("error: %v", err)
			healthy = false
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	if s.cfg.Engine != nil {
		experts := s.cfg.Engine.TrackedExperts()
		resp.TrackedExperts = &experts

		at, err := s.cfg.Engine.LastSweep()
		switch {
		case at.IsZero():
			resp.Checks["effectiveness_sweep"] = "pending"
		case err != nil:
			resp.Checks["effectiveness_sweep"] = fmt.Sprintf("error: %v", err)
			resp.LastSweep = at.Format(time.RFC3339)
			healthy = false
		default:
			resp.Checks["effectiveness_sweep"] = "ok"
			resp.LastSweep = at.Format(time.RFC3339)
		}
	}

	resp.Duration = time.Since(start).String()
	status := http.StatusOK
	resp.Status = "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		resp.Status = "not_ready"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
