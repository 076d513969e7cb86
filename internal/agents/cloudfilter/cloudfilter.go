// Package cloudfilter implements the Cloud Filter Agent (component H): an
// LLM call that detects explicit cloud-cover intent only, never inferring
// a threshold from urgency, disaster type, or analysis depth.
package cloudfilter

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/llm"
	"github.com/54b3r/geostac/internal/registry"
)

// DefaultTimeout bounds this agent's LLM call to 15 seconds.
const DefaultTimeout = 15 * time.Second

// Intent is the tagged cloud-cover intent the agent detects.
type Intent string

const (
	None   Intent = "none"
	Low    Intent = "low"
	Medium Intent = "medium"
	High   Intent = "high"
)

var thresholds = map[Intent]float64{
	Low:    25,
	Medium: 50,
	High:   75,
}

// Filter is the concrete query-time filter, present only when at least one
// selected collection supports cloud filtering.
type Filter struct {
	Property  string  `json:"property"`
	Op        string  `json:"op"`
	Threshold float64 `json:"threshold"`
}

// Result is the agent's output.
type Result struct {
	Intent    Intent
	Filter    *Filter
	Reasoning string
	// Warning is set when the user expressed cloud intent but no selected
	// collection supports cloud filtering (e.g. SAR).
	Warning string
}

// Agent wraps the LLM Gateway and the registry (used to pick the cloud
// cover property name and to decide whether any selected collection
// supports cloud filtering).
type Agent struct {
	gateway  *llm.Gateway
	registry *registry.Registry
}

// New constructs an Agent. gateway may be nil to force keyword-only mode.
func New(gateway *llm.Gateway, reg *registry.Registry) *Agent {
	return &Agent{gateway: gateway, registry: reg}
}

type llmResponse struct {
	CloudIntent      string  `json:"cloud_intent"`
	ThresholdPercent float64 `json:"threshold_percent"`
	Reasoning        string  `json:"reasoning"`
}

const systemPrompt = `You detect EXPLICIT cloud-cover filtering intent in a geospatial query.
Never infer cloud intent from urgency, disaster type, or analysis depth —
only from direct language like "clear skies", "cloudless", "low cloud
cover", "clear imagery".

Mapping: low -> 25% max cloud cover, medium -> 50%, high -> 75%. If the
query names an exact numeric limit ("under 10% cloud cover"), set
threshold_percent to that number; otherwise set it to 0 and the bucket
default applies. If the query does not explicitly mention cloud cover,
set cloud_intent to "none".

Respond with a JSON object: {"cloud_intent": "none"|"low"|"medium"|"high",
"threshold_percent": 0-100, "reasoning": "one sentence"}.`

// Detect runs the LLM call, falling back to keyword detection, then
// resolves the result against the selected collections: a filter is
// returned only if at least one of selectedCollections supports cloud
// filtering; otherwise a user-visible Warning is set instead.
func (a *Agent) Detect(ctx context.Context, query string, selectedCollections []string) Result {
	intent := None
	explicit := 0.0
	reasoning := ""

	if a.gateway != nil {
		var out llmResponse
		sch := llm.Schema{Name: "cloud filter detection", Required: []string{"cloud_intent"}}
		err := a.gateway.CompleteJSON(ctx, systemPrompt, query, sch, &out, 256, DefaultTimeout)
		if err == nil && isValidIntent(Intent(out.CloudIntent)) {
			intent = Intent(out.CloudIntent)
			explicit = out.ThresholdPercent
			reasoning = out.Reasoning
		} else {
			intent, explicit, reasoning = ruleBased(query)
		}
	} else {
		intent, explicit, reasoning = ruleBased(query)
	}

	if intent == None {
		return Result{Intent: None, Reasoning: reasoning}
	}

	property := anyCloudFilterableProperty(a.registry, selectedCollections)
	if property == "" {
		return Result{
			Intent:    intent,
			Reasoning: reasoning,
			Warning:   "cloud cover filter is not applicable to the selected collections",
		}
	}

	// An explicit numeric threshold in the query overrides the bucket
	// default: "under 10% cloud cover" means 10, not the low bucket's 25.
	threshold := thresholds[intent]
	if explicit > 0 && explicit <= 100 {
		threshold = explicit
	}

	return Result{
		Intent: intent,
		Filter: &Filter{
			Property:  property,
			Op:        "lt",
			Threshold: threshold,
		},
		Reasoning: reasoning,
	}
}

func anyCloudFilterableProperty(reg *registry.Registry, collectionIDs []string) string {
	for _, id := range collectionIDs {
		if reg.SupportsCloudFiltering(id) {
			if p := reg.CloudCoverProperty(id); p != "" {
				return p
			}
		}
	}
	return ""
}

func isValidIntent(i Intent) bool {
	switch i {
	case None, Low, Medium, High:
		return true
	default:
		return false
	}
}

var explicitPctRe = regexp.MustCompile(`(\d{1,3})\s*%`)

func ruleBased(query string) (Intent, float64, string) {
	q := strings.ToLower(query)

	if strings.Contains(q, "cloud") {
		if m := explicitPctRe.FindStringSubmatch(q); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil && pct > 0 && pct <= 100 {
				return bucketFor(float64(pct)), float64(pct), "rule-based: explicit cloud-cover percentage"
			}
		}
	}

	switch {
	case strings.Contains(q, "cloudless") || strings.Contains(q, "completely clear"):
		return Low, 0, "rule-based: strong clarity language"
	case strings.Contains(q, "clear sky") || strings.Contains(q, "clear skies") || strings.Contains(q, "low cloud"):
		return Low, 0, "rule-based: clear-sky keyword"
	case strings.Contains(q, "cloud"):
		return Medium, 0, "rule-based: generic cloud keyword"
	default:
		return None, 0, "rule-based: no explicit cloud-cover language"
	}
}

// bucketFor maps an explicit percentage back onto the intent taxonomy, so
// a numeric threshold still carries a coherent intent tag.
func bucketFor(pct float64) Intent {
	switch {
	case pct <= 25:
		return Low
	case pct <= 50:
		return Medium
	default:
		return High
	}
}
