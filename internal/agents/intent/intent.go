// Package intent implements the Intent Classifier (component D): a single
// LLM call that buckets a query into one of four intents, with a
// rule-based fallback sharing the same keyword taxonomy so the two paths
// never disagree on the easy cases.
package intent

import (
	"context"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/llm"
)

// Type is the tagged union of possible classifications.
type Type string

const (
	Vision     Type = "vision"
	Stac       Type = "stac"
	Hybrid     Type = "hybrid"
	Contextual Type = "contextual"
)

// Result is the Intent Classifier's output.
type Result struct {
	Type                Type
	NeedsSatelliteData  bool
	NeedsVisionAnalysis bool
	NeedsContextualInfo bool
	Confidence          float64
	Reasoning           string
}

func deriveFlags(t Type) (satellite, vision, contextual bool) {
	switch t {
	case Vision:
		return false, true, false
	case Stac:
		return true, false, false
	case Hybrid:
		return true, true, false
	case Contextual:
		return false, false, true
	default:
		return false, false, true
	}
}

// DefaultTimeout bounds this agent's LLM call to 20 seconds.
const DefaultTimeout = 20 * time.Second

// Classifier wraps the LLM Gateway and the rule-based fallback.
type Classifier struct {
	gateway *llm.Gateway
}

// New constructs a Classifier. gateway may be nil to force rule-based-only
// operation (useful in tests and for a degraded-mode deployment).
func New(gateway *llm.Gateway) *Classifier {
	return &Classifier{gateway: gateway}
}

const systemPrompt = `You classify a user's geospatial query into exactly one intent.

Rules, in priority order:
- Past tense, no "show/display/load" keyword -> contextual.
- Contains "in this image", "visible", "can you see" -> vision.
- Contains "show"/"load"/"display" only (no analysis keyword) -> stac.
- Contains "show"/"load"/"display" combined with "describe"/"analyze"/"explain"/"identify" -> hybrid.
- Pure "how"/"what is"/"explain"/"why" without visualization keywords -> contextual.

Respond with a JSON object: {"intent_type": "vision"|"stac"|"hybrid"|"contextual",
"confidence": 0.0-1.0, "reasoning": "one sentence"}.`

type llmResponse struct {
	IntentType string  `json:"intent_type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify runs the LLM call, falling back to the rule-based classifier on
// timeout or malformed output, per the shared retry-then-fallback policy.
func (c *Classifier) Classify(ctx context.Context, query string) Result {
	if c.gateway != nil {
		var out llmResponse
		sch := llm.Schema{Name: "intent classification", Required: []string{"intent_type", "confidence"}}
		err := c.gateway.CompleteJSON(ctx, systemPrompt, query, sch, &out, 256, DefaultTimeout)
		if err == nil {
			if t := Type(out.IntentType); isValidType(t) {
				sat, vis, ctxual := deriveFlags(t)
				return Result{
					Type:                t,
					NeedsSatelliteData:  sat,
					NeedsVisionAnalysis: vis,
					NeedsContextualInfo: ctxual,
					Confidence:          out.Confidence,
					Reasoning:           out.Reasoning,
				}
			}
		}
	}
	return RuleBased(query)
}

func isValidType(t Type) bool {
	switch t {
	case Vision, Stac, Hybrid, Contextual:
		return true
	default:
		return false
	}
}

var visionKeywords = []string{"in this image", "visible", "can you see"}
var displayKeywords = []string{"show", "load", "display"}
var analysisKeywords = []string{"describe", "analyze", "analyse", "explain", "identify"}
var questionKeywords = []string{"how", "what is", "what's", "why"}
var pastTenseHints = []string{"was", "were", "had", "did", "impacted", "affected", "happened"}

// RuleBased classifies using the same keyword taxonomy the LLM prompt
// encodes, at a capped confidence (<= 0.5) since it never
// reasons about ambiguity the way the model can.
func RuleBased(query string) Result {
	q := strings.ToLower(query)

	hasVision := containsAny(q, visionKeywords)
	hasDisplay := containsAny(q, displayKeywords)
	hasAnalysis := containsAny(q, analysisKeywords)
	hasQuestion := containsAny(q, questionKeywords)
	hasPastTense := containsAny(q, pastTenseHints)

	var t Type
	switch {
	case hasVision:
		t = Vision
	case hasDisplay && hasAnalysis:
		t = Hybrid
	case hasDisplay:
		t = Stac
	case hasPastTense && !hasDisplay:
		t = Contextual
	case hasQuestion && !hasDisplay:
		t = Contextual
	default:
		t = Contextual
	}

	sat, vis, ctxual := deriveFlags(t)
	return Result{
		Type:                t,
		NeedsSatelliteData:  sat,
		NeedsVisionAnalysis: vis,
		NeedsContextualInfo: ctxual,
		Confidence:          0.5,
		Reasoning:           "rule-based keyword classification",
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
