package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/geostac/internal/orchestrator"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds how long a /api/query request may run before the
	// handler abandons it; mirrors [orchestrator.OverallTurnTimeout] by
	// default so the HTTP layer never cuts a turn short of the pipeline's
	// own deadline.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry is where server metrics are registered. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the interface handleQuery calls to translate a natural-language
// question into a STAC search and a composed reply.
// *orchestrator.Pipeline satisfies it; tests inject a fake.
type querier interface {
	TranslateQuery(ctx context.Context, sessionID, queryText string, pin *orchestrator.Pin) orchestrator.Response
	Reset(sessionID string)
}

// Server is the HTTP server that wraps the query orchestration Pipeline.
type Server struct {
	// pipeline is the orchestrator that handles every query.
	pipeline *orchestrator.Pipeline
	// querier is the interface used by handleQuery; set to pipeline in
	// production, overridden by a fake in tests.
	querier querier
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// metrics holds the Prometheus metrics owned by this server instance.
	metrics *serverMetrics
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// SessionID identifies the conversation this turn belongs to.
	SessionID string `json:"sessionId"`
	// Query is the user's natural-language geospatial question.
	Query string `json:"query"`
	// Pin is an optional map-pin coordinate used as a spatial fallback when
	// the query text names no resolvable location.
	Pin *pinRequest `json:"pin,omitempty"`
}

// pinRequest is the JSON shape of a map-pin coordinate.
type pinRequest struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	RadiusMiles float64 `json:"radiusMiles,omitempty"`
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	// SessionID identifies the conversation to clear.
	SessionID string `json:"sessionId"`
}
