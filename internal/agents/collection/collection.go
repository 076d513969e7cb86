// Package collection implements the Collection Mapping Agent (component E):
// an LLM call that selects 1-3 collection IDs from the registry's
// catalogue, with a keyword-based fallback sharing the same precedence
// rules (explicit platform mention > use-case keyword > generic default).
package collection

import (
	"context"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/llm"
	"github.com/54b3r/geostac/internal/registry"
)

// DefaultTimeout bounds this agent's LLM call to 15 seconds.
const DefaultTimeout = 15 * time.Second

// Agent wraps the LLM Gateway and the registry it maps into.
type Agent struct {
	gateway  *llm.Gateway
	registry *registry.Registry
}

// New constructs an Agent. gateway may be nil to force keyword-only mode.
func New(gateway *llm.Gateway, reg *registry.Registry) *Agent {
	return &Agent{gateway: gateway, registry: reg}
}

type llmResponse struct {
	CollectionIDs []string `json:"collection_ids"`
}

func systemPrompt(reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString(`You select 1-3 STAC collection IDs for a geospatial query from the
catalogue below.

Priority rules, in order:
1. An explicit platform mention ("SAR", "radar", "Sentinel-1") overrides
   every other rule and selects exactly that platform's ID(s).
2. Use-case keywords ("elevation", "fire", "flood", "vegetation", "snow",
   "air quality") select the matching category's default ID(s).
3. Generic "satellite imagery" with no other signal selects the canonical
   optical pair (sentinel-2-l2a, landsat-c2-l2).

Catalogue:
`)
	for _, s := range reg.Summaries() {
		b.WriteString("- ")
		b.WriteString(s.ID)
		b.WriteString(" (")
		b.WriteString(s.Name)
		b.WriteString(", category=")
		b.WriteString(string(s.Category))
		b.WriteString(")\n")
	}
	b.WriteString(`
Respond with a JSON object: {"collection_ids": ["id1", "id2"]}. Return
between 1 and 3 IDs, all drawn verbatim from the catalogue above.`)
	return b.String()
}

// Select runs the LLM call, intersects the result with the registry, and
// falls back to keyword selection if the LLM call fails, returns no known
// ID, or is unavailable.
func (a *Agent) Select(ctx context.Context, query string) []string {
	if a.gateway != nil {
		var out llmResponse
		sch := llm.Schema{Name: "collection mapping", Required: []string{"collection_ids"}}
		err := a.gateway.CompleteJSON(ctx, systemPrompt(a.registry), query, sch, &out, 256, DefaultTimeout)
		if err == nil {
			known := a.registry.FilterKnown(out.CollectionIDs)
			if len(known) > 0 {
				return clamp3(known)
			}
		}
	}
	return KeywordSelect(query, a.registry)
}

// platform keyword precedence: checked before any use-case keyword.
var platformKeywords = map[string][]string{
	"sar":       {"sentinel-1-grd"},
	"radar":     {"sentinel-1-grd"},
	"sentinel-1": {"sentinel-1-grd"},
	"sentinel-2": {"sentinel-2-l2a"},
	"landsat":   {"landsat-c2-l2"},
	"hls":       {"hls2-l30"},
	"modis":     {"modis-ndvi"},
	"viirs":     {"viirs-fire"},
}

// useCaseKeywords: category-specific defaults, checked after platform
// keywords and before the generic fallback.
var useCaseKeywords = map[string][]string{
	"elevation":   {"cop-dem-glo-30", "nasadem"},
	"terrain":     {"cop-dem-glo-30", "nasadem"},
	"dem":         {"cop-dem-glo-30", "nasadem"},
	"fire":        {"modis-fire", "viirs-fire"},
	"wildfire":    {"modis-fire", "viirs-fire"},
	"flood":       {"sentinel-1-grd"},
	"vegetation":  {"modis-ndvi"},
	"ndvi":        {"modis-ndvi"},
	"snow":        {"sentinel-2-l2a", "landsat-c2-l2"},
	"air quality": {"noaa-gfs"},
	"weather":     {"noaa-gfs"},
}

// KeywordSelect is the rule-based fallback shared by the LLM path's
// empty-result case and by degraded-mode operation.
func KeywordSelect(query string, reg *registry.Registry) []string {
	q := " " + strings.ToLower(query) + " "

	for kw, ids := range platformKeywords {
		if containsWord(q, kw) {
			return reg.FilterKnown(ids)
		}
	}
	for kw, ids := range useCaseKeywords {
		if containsWord(q, kw) {
			return reg.FilterKnown(ids)
		}
	}
	return reg.FilterKnown([]string{"sentinel-2-l2a", "landsat-c2-l2"})
}

// containsWord reports whether kw appears in q (which must be padded with
// leading/trailing spaces) delimited by non-letter boundaries, so "sar"
// matches "SAR data" but not "solar panel".
func containsWord(q, kw string) bool {
	idx := 0
	for {
		rel := strings.Index(q[idx:], kw)
		if rel < 0 {
			return false
		}
		pos := idx + rel
		before := q[pos-1]
		after := q[pos+len(kw)]
		if !isLetter(before) && !isLetter(after) {
			return true
		}
		idx = pos + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func clamp3(ids []string) []string {
	if len(ids) > 3 {
		return ids[:3]
	}
	return ids
}
