// Package server implements the HTTP server that exposes the query
// orchestration pipeline via a JSON API.
// The server is started by the `geostacd serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/geostac/internal/logging"
	"github.com/54b3r/geostac/internal/orchestrator"
	"github.com/54b3r/geostac/internal/tracing"
)

// requestCounter is a monotonically increasing counter used to generate
// unique per-request session IDs when the caller does not supply one.
var requestCounter atomic.Uint64

// New constructs a Server from the provided pipeline and config.
// If cfg.Logger is nil, [logging.New] is used.
func New(pipeline *orchestrator.Pipeline, cfg *Config) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = orchestrator.OverallTurnTimeout
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}

	s := &Server{
		pipeline: pipeline,
		querier:  pipeline,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", rl.middleware(authMiddleware(cfg.APIKey, http.HandlerFunc(s.handleQuery))))
	mux.Handle("POST /api/reset", rl.middleware(authMiddleware(cfg.APIKey, http.HandlerFunc(s.handleReset))))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		if s.stopRL != nil {
			s.stopRL()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// maxQueryBodyBytes is the maximum allowed size for a /api/query request body.
// Prevents unbounded memory allocation from oversized requests.
const maxQueryBodyBytes = 1 << 20 // 1 MiB

// handleQuery handles POST /api/query requests: it translates the user's
// natural-language question into a STAC search, runs it, and returns the
// composed reply as JSON.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = fmt.Sprintf("geostac-%d-%d", time.Now().UnixMilli(), requestCounter.Add(1))
	}

	var pin *orchestrator.Pin
	if req.Pin != nil {
		pin = &orchestrator.Pin{Lat: req.Pin.Lat, Lon: req.Pin.Lon, RadiusMiles: req.Pin.RadiusMiles}
	}

	ctx, cancel := context.WithTimeout(tracing.SetRequestTrace(r.Context(), req.SessionID), s.cfg.QueryTimeout)
	defer cancel()

	log := logging.FromContext(r.Context()).With(
		slog.String("session_id", req.SessionID),
	)
	log.Info("query start", slog.String("query", req.Query))

	s.metrics.queryActiveRequests.Inc()
	start := time.Now()
	resp := s.querier.TranslateQuery(ctx, req.SessionID, req.Query, pin)
	elapsed := time.Since(start)
	s.metrics.queryActiveRequests.Dec()

	outcome := "error"
	switch {
	case resp.Success:
		outcome = "ok"
	case ctx.Err() == context.DeadlineExceeded:
		outcome = "timeout"
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("query encode error", slog.Any("error", err))
	}
}

// handleReset handles POST /api/reset requests, clearing a session's
// conversation state.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	s.querier.Reset(req.SessionID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"reset": true})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		logging.FromContext(r.Context()).Error("health encode error", slog.Any("error", err))
	}
}
