package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/geostac/internal/logging"
	"github.com/54b3r/geostac/internal/orchestrator"
)

// fakeQuerier is a test double for the querier interface.
type fakeQuerier struct {
	// resp is returned by every TranslateQuery call.
	resp orchestrator.Response
	// resetCalls records every sessionID passed to Reset.
	resetCalls []string
}

func (f *fakeQuerier) TranslateQuery(_ context.Context, _, _ string, _ *orchestrator.Pin) orchestrator.Response {
	return f.resp
}

func (f *fakeQuerier) Reset(sessionID string) {
	f.resetCalls = append(f.resetCalls, sessionID)
}

// newTestServer builds a minimal *Server backed by a fresh isolated
// Prometheus registry and a fakeQuerier, suitable for handler-level tests
// that do not need a real Pipeline or listening socket.
func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		querier: &fakeQuerier{resp: orchestrator.Response{Success: true}},
		cfg:     &Config{MetricsRegistry: reg, MetricsGatherer: reg},
		log:     logging.New(),
		metrics: newServerMetrics(reg),
	}
}
