package orchestrator

import "time"

// Each agent already enforces its own deadline internally (see
// internal/llm.Gateway and internal/agents/*), as does the STAC client; the
// constants here list those per-stage budgets in one place. The
// orchestrator itself applies only LocationResolverTotalTimeout (around
// query building when a location name is present) and OverallTurnTimeout;
// the fan-out/fan-in join has no deadline of its own beyond the turn's.
const (
	// IntentTimeout bounds the Intent Classifier call.
	IntentTimeout = 20 * time.Second

	// ParallelAgentTimeout bounds each of the four concurrently-run agents
	// (Collection Mapping, Location Extraction, Datetime Translation, Cloud
	// Filter). Wall-clock for the join is ~= this value, not the sum, since
	// the agents run concurrently.
	ParallelAgentTimeout = 15 * time.Second

	// LocationResolverTotalTimeout bounds the full backend chain walk inside
	// the STAC Query Builder's location resolution step.
	LocationResolverTotalTimeout = 30 * time.Second

	// StacSearchTimeout bounds a single STAC search call (the client also
	// enforces this internally).
	StacSearchTimeout = 30 * time.Second

	// OverallTurnTimeout bounds a complete translate_query call, including
	// one negotiation retry.
	OverallTurnTimeout = 90 * time.Second
)
