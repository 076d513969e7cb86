// Package compose implements the Response Composer (component N): the
// final stage that produces the user-facing message, selecting among
// brief/detailed/hybrid templates and incorporating relaxation records,
// cloud-filter warnings, and diagnostic failure explanations.
package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/geostac/internal/agents/intent"
	"github.com/54b3r/geostac/internal/budget"
	"github.com/54b3r/geostac/internal/convo"
	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/llm"
	"github.com/54b3r/geostac/internal/negotiate"
)

// DefaultTimeout bounds the optional LLM-assisted detailed/hybrid prose
// call; it uses the same 15 s budget as the extraction agents, although it
// runs after their fan-in rather than inside it.
const DefaultTimeout = 15 * time.Second

// Input bundles everything the Composer may need across its templates.
type Input struct {
	Intent intent.Type

	// Query is the user's current question, used to ground the
	// LLM-generated detailed template. Empty disables the LLM path.
	Query string
	// ChatHistory is the session's prior turns, trimmed oldest-first to
	// the token budget before inclusion in the prompt.
	ChatHistory []convo.Message

	FeatureCount   int
	Collections    []string
	LocationName   string
	Bbox           geo.BBox
	Datetime       geo.DatetimeRange
	CloudThreshold *float64
	CloudWarning   string
	Relaxation     *negotiate.Record
	GeointMetrics  map[string]any
	HasRenderedMap bool

	// Diagnostic context for failure/empty-result messages.
	RawCount             int
	SpatialFilteredCount int
	FinalCount           int
	FailureStage         string
}

// Composer produces the final message text.
type Composer struct {
	gateway *llm.Gateway
}

// New constructs a Composer. gateway may be nil to force the rule-based
// template fallback.
func New(gateway *llm.Gateway) *Composer {
	return &Composer{gateway: gateway}
}

// Compose selects a template by Input.Intent and produces the
// user-facing message.
func (c *Composer) Compose(ctx context.Context, in Input) string {
	var body string
	switch in.Intent {
	case intent.Contextual:
		body = c.detailed(ctx, in)
	case intent.Hybrid:
		body = c.brief(in) + "\n\n" + c.detailed(ctx, in)
	default:
		body = c.brief(in)
	}

	var prefix string
	if in.Relaxation != nil {
		prefix = relaxationPreamble(*in.Relaxation) + "\n\n"
	}
	if in.CloudWarning != "" {
		prefix += in.CloudWarning + "\n\n"
	}
	return prefix + body
}

// brief implements the strict brief template: one-to-two sentences, no
// surrounding quotes, no subjective quality adjectives.
func (c *Composer) brief(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d %s from %s", in.FeatureCount, pluralTile(in.FeatureCount), collectionList(in.Collections))
	if in.LocationName != "" {
		fmt.Fprintf(&b, " over %s", in.LocationName)
	}
	if !in.Datetime.IsZero() {
		fmt.Fprintf(&b, ", acquired %s to %s", in.Datetime.Start, in.Datetime.End)
	}
	if in.CloudThreshold != nil {
		fmt.Fprintf(&b, ", filtered to under %.0f%% cloud cover", *in.CloudThreshold)
	}
	b.WriteString(".")
	return b.String()
}

// detailed implements the contextual/hybrid template: Earth-science
// explanation, never referencing "the map" unless one was rendered. The
// rule-based fallback is a short, templated paragraph; with a gateway
// available the prose is LLM-generated over the session's recent history,
// falling back to the template on any failure.
func (c *Composer) detailed(ctx context.Context, in Input) string {
	if c.gateway != nil && in.Query != "" {
		if text := c.llmDetailed(ctx, in); text != "" {
			return text
		}
	}
	if len(in.GeointMetrics) > 0 {
		var b strings.Builder
		b.WriteString("Based on the available geospatial context: ")
		first := true
		for k, v := range in.GeointMetrics {
			if !first {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s is %v", k, v)
			first = false
		}
		b.WriteString(".")
		return b.String()
	}
	if in.HasRenderedMap {
		return "The rendered map reflects the available satellite and contextual data for this query."
	}
	return "This is a contextual question that does not require new satellite data to answer."
}

const detailedSystemPrompt = `You are an Earth-science assistant. Answer the user's geospatial
question in one to three factual paragraphs. Be concrete: name the
processes, datasets, and timescales involved. Do not invent numbers.`

// llmDetailed generates the detailed prose over the session's chat
// history, trimmed oldest-first to the token budget. Returns "" on any
// failure so detailed falls back to the template.
func (c *Composer) llmDetailed(ctx context.Context, in Input) string {
	system := detailedSystemPrompt
	if in.HasRenderedMap {
		system += "\nA map of the relevant data is rendered alongside your answer; you may refer to it."
	} else {
		system += "\nNo map is rendered; never refer to a map or image."
	}
	if len(in.GeointMetrics) > 0 {
		var b strings.Builder
		b.WriteString("\nInline these measured values where relevant:")
		for k, v := range in.GeointMetrics {
			fmt.Fprintf(&b, " %s=%v;", k, v)
		}
		system += b.String()
	}

	fixed := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(in.Query),
	}

	var history []*schema.Message
	for _, m := range in.ChatHistory {
		switch m.Role {
		case convo.RoleUser:
			history = append(history, schema.UserMessage(m.Content))
		case convo.RoleAssistant:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}
	history = budget.TrimHistory(fixed, history, budget.DefaultMaxContextTokens)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, fixed[0])
	messages = append(messages, history...)
	messages = append(messages, fixed[1])

	text, err := c.gateway.CompleteMessages(ctx, messages, 800, DefaultTimeout)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func relaxationPreamble(r negotiate.Record) string {
	return fmt.Sprintf(
		"The exact filters you requested did not return any results, so %s",
		r.Explanation,
	)
}

func collectionList(collections []string) string {
	if len(collections) == 0 {
		return "the requested dataset"
	}
	return strings.Join(collections, ", ")
}

func pluralTile(n int) string {
	if n == 1 {
		return "tile"
	}
	return "tiles"
}

// EmptyResultMessage builds the rule-based fallback explanation for an
// exhausted negotiation (all relaxation steps tried, still empty),
// following a compact 2-3 paragraph / 2-4 bullet shape.
func EmptyResultMessage(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No tiles matched your request after relaxing the available filters. "+
		"%d candidate tiles were found, %d remained after spatial filtering, and %d after ranking.\n\n",
		in.RawCount, in.SpatialFilteredCount, in.FinalCount)
	b.WriteString("Suggestions:\n")
	b.WriteString("- Widen the requested date range\n")
	b.WriteString("- Relax or remove the cloud-cover filter\n")
	b.WriteString("- Try a nearby or more specific location\n")
	b.WriteString("- Consider a different collection for this area\n")
	return b.String()
}

// ErrorMessage builds the fatal-for-turn message for an upstream error
// (UnresolvedLocation, MalformedQuery, DeadlineExceeded), keyed by
// FailureStage.
func ErrorMessage(failureStage string) string {
	switch failureStage {
	case "unresolved_location":
		return "The location in your query could not be resolved. Try specifying a well-known city, state, or country name."
	case "malformed_query":
		return "Something went wrong assembling the search for your query. Please try rephrasing it."
	case "deadline_exceeded":
		return "The request took too long to complete and was cancelled. Please try again."
	case "input_validation":
		return "Please enter a question or request."
	default:
		return "Something went wrong processing your request. Please try again."
	}
}
