package tiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/budget"
	"github.com/54b3r/geostac/internal/llm"
)

// smartPathDeadline bounds the LLM ranking call; it draws from the same
// overall turn budget as the other agents rather than getting its own
// spec-mandated constant.
const smartPathDeadline = 15 * time.Second

type rankResponse struct {
	SelectedIDs []string `json:"selected_ids"`
}

// smartPathRank asks the LLM to choose up to tileCap IDs from the
// candidate summary. On any failure it returns nil so the caller keeps
// the rule-based ranking instead.
func (s *Selector) smartPathRank(ctx context.Context, query string, candidates []ScoredTile, tileCap int) []ScoredTile {
	prompt := summarize(candidates, tileCap)
	system := fmt.Sprintf(`You select the best %d tile IDs for a geospatial query from the
candidate summary below, considering recency, cloud cover, spatial
coverage, and any quality metadata. Respond with a JSON object:
{"selected_ids": ["id1", "id2", ...]}.`, tileCap)

	// Keep the prompt within a conservative budget; trimming drops the
	// lowest-priority (already-lowest-scored) lines first.
	for budget.Estimate(prompt) > budget.DefaultMaxContextTokens && len(candidates) > 1 {
		candidates = candidates[:len(candidates)-1]
		prompt = summarize(candidates, tileCap)
	}

	var out rankResponse
	sch := llm.Schema{Name: "tile ranking", Required: []string{"selected_ids"}}
	if err := s.gateway.CompleteJSON(ctx, system, prompt, sch, &out, 512, smartPathDeadline); err != nil {
		return nil
	}

	byID := map[string]ScoredTile{}
	for _, c := range candidates {
		byID[c.Feature.ID] = c
	}
	ranked := make([]ScoredTile, 0, len(out.SelectedIDs))
	for _, id := range out.SelectedIDs {
		if t, ok := byID[id]; ok {
			ranked = append(ranked, t)
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	return ranked
}

func summarize(candidates []ScoredTile, tileCap int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tile budget: %d\n", tileCap)
	for _, c := range candidates {
		cloud := "n/a"
		if v, ok := c.Feature.Properties["eo:cloud_cover"]; ok {
			cloud = fmt.Sprintf("%v", v)
		}
		dt := "n/a"
		if v, ok := c.Feature.Properties["datetime"]; ok {
			dt = fmt.Sprintf("%v", v)
		}
		fmt.Fprintf(&b, "- id=%s collection=%s datetime=%s cloud_cover=%s overlap=%.2f score=%.1f\n",
			c.Feature.ID, c.Feature.Collection, dt, cloud, c.Overlap, c.Breakdown.Total())
	}
	return b.String()
}
