package geocoder

import (
	"context"
	"time"

	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/llm"
)

// LLMBackend is the chain's last resort: it asks the gateway model for its
// best estimate of a bounding box for a place it could not otherwise
// resolve. It always answers ok=true (the model always produces a guess),
// so it must stay last in the chain — every more authoritative backend
// gets a chance first.
type LLMBackend struct {
	gateway  *llm.Gateway
	deadline time.Duration
}

// NewLLMBackend wraps a gateway for use as the chain's fallback backend.
func NewLLMBackend(gateway *llm.Gateway, deadline time.Duration) *LLMBackend {
	return &LLMBackend{gateway: gateway, deadline: deadline}
}

func (b *LLMBackend) Name() string { return "llm-derived" }

type llmBBoxResponse struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

const bboxSystemPrompt = `You are a geocoding fallback. Given a place name, respond with your best
estimate of its bounding box as a JSON object with numeric fields "west",
"south", "east", "north" in WGS84 decimal degrees. If you are not
confident, still provide your best estimate rather than refusing.`

func (b *LLMBackend) Resolve(ctx context.Context, location string) (geo.BBox, bool, error) {
	var out llmBBoxResponse
	sch := llm.Schema{Name: "bounding box estimate", Required: []string{"west", "south", "east", "north"}}
	if err := b.gateway.CompleteJSON(ctx, bboxSystemPrompt, location, sch, &out, 256, b.deadline); err != nil {
		return geo.BBox{}, false, err
	}
	return geo.BBox{out.West, out.South, out.East, out.North}, true, nil
}
