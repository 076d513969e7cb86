// Package location implements the Location Extraction Agent (component F):
// an LLM call that extracts a single place-name entity from a query.
package location

import (
	"context"
	"time"

	"github.com/54b3r/geostac/internal/llm"
)

// DefaultTimeout bounds this agent's LLM call to 15 seconds.
const DefaultTimeout = 15 * time.Second

// Type enumerates the kinds of place entity the agent recognizes.
type Type string

const (
	City     Type = "city"
	State    Type = "state"
	Country  Type = "country"
	Region   Type = "region"
	Landmark Type = "landmark"
)

// Result is the agent's output. Name is nil when no location was found,
// which the orchestrator treats as "no spatial filter".
type Result struct {
	Name       *string
	Type       Type
	Confidence float64
}

// Agent wraps the LLM Gateway.
type Agent struct {
	gateway *llm.Gateway
}

// New constructs an Agent. gateway may be nil to force the no-location
// fallback (there is no meaningful rule-based entity extractor for this
// agent — free-text place-name extraction is not a pattern a keyword table
// can approximate, so a nil gateway degrades to "no location found").
func New(gateway *llm.Gateway) *Agent {
	return &Agent{gateway: gateway}
}

type llmResponse struct {
	Name       *string `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

const systemPrompt = `Extract the single primary place name from a geospatial query, if any.
Recognize cities, states, countries, regions, and landmarks. For a route
or "from X to Y" query, return the primary endpoint, X. If no location is
mentioned, set "name" to null.

Respond with a JSON object: {"name": "Seattle"|null, "type":
"city"|"state"|"country"|"region"|"landmark", "confidence": 0.0-1.0}.`

// Extract runs the LLM call. On failure it returns a zero-confidence
// Result with Name == nil rather than guessing.
func (a *Agent) Extract(ctx context.Context, query string) Result {
	if a.gateway == nil {
		return Result{}
	}
	var out llmResponse
	sch := llm.Schema{Name: "location extraction", Required: []string{"confidence"}}
	if err := a.gateway.CompleteJSON(ctx, systemPrompt, query, sch, &out, 256, DefaultTimeout); err != nil {
		return Result{}
	}
	if out.Name != nil && *out.Name == "" {
		out.Name = nil
	}
	return Result{Name: out.Name, Type: Type(out.Type), Confidence: out.Confidence}
}
