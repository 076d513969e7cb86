// Package datetime implements the Datetime Translation Agent (component G):
// an LLM call converting natural-language time expressions into ISO-8601
// ranges, in either single or comparison mode, plus the rule-based
// conversions ("recent", quarters, seasons) the prompt is instructed to
// apply so a deterministic fallback can reproduce common cases.
package datetime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/llm"
)

// DefaultTimeout bounds this agent's LLM call to 15 seconds.
const DefaultTimeout = 15 * time.Second

// SingleResult is the agent's output in single-period mode.
type SingleResult struct {
	// Range is geo.DatetimeRange{} (IsZero) when no temporal expression
	// was present in the query.
	Range       geo.DatetimeRange
	Explanation string
}

// ComparisonResult is the agent's output when the query expresses two
// periods to compare.
type ComparisonResult struct {
	Before            geo.DatetimeRange
	After             geo.DatetimeRange
	Explanation       string
	NeedsClarification bool
	Suggestion        string
}

// Agent wraps the LLM Gateway and a clock for "recent"/relative
// resolution. now is injectable for deterministic tests.
type Agent struct {
	gateway *llm.Gateway
	now     func() time.Time
}

// New constructs an Agent using the real wall clock.
func New(gateway *llm.Gateway) *Agent {
	return &Agent{gateway: gateway, now: time.Now}
}

// NewWithClock is the test-friendly constructor.
func NewWithClock(gateway *llm.Gateway, now func() time.Time) *Agent {
	return &Agent{gateway: gateway, now: now}
}

type singleLLMResponse struct {
	DatetimeRange string `json:"datetime_range"`
	Explanation   string `json:"explanation"`
}

type comparisonLLMResponse struct {
	Before             string `json:"before"`
	After              string `json:"after"`
	Explanation        string `json:"explanation"`
	NeedsClarification bool   `json:"needs_clarification"`
	Suggestion         string `json:"suggestion"`
}

const singleSystemPrompt = `Convert a natural-language time expression in a geospatial query into an
ISO-8601 date range "YYYY-MM-DD/YYYY-MM-DD", using today's date as the
reference point. Rules:
- year only -> full calendar year.
- month + year -> full month.
- "recent"/"recently" -> last 30 days.
- a quarter (Q1..Q4) -> Q1=Jan-Mar, Q2=Apr-Jun, Q3=Jul-Sep, Q4=Oct-Dec of
  the stated or implied year.
- a season -> a 3-month window (winter=Dec-Feb, spring=Mar-May,
  summer=Jun-Aug, fall/autumn=Sep-Nov).
- "near <date>" -> the date +/- 9 days.
- an explicit specific date -> that single day as start and end.
- no temporal expression at all -> set datetime_range to "none".

Respond with a JSON object: {"datetime_range": "...", "explanation": "..."}.`

const comparisonSystemPrompt = `The query compares two time periods. Return each as an ISO-8601 range
"YYYY-MM-DD/YYYY-MM-DD". If the two periods cannot be disambiguated from
the text, set needs_clarification to true and fill before/after with
fallback full-year ranges, and fill suggestion with a clarifying question.

Respond with a JSON object: {"before": "...", "after": "...",
"explanation": "...", "needs_clarification": bool, "suggestion": "..."}.`

// TranslateSingle runs the single-period mode of the agent.
func (a *Agent) TranslateSingle(ctx context.Context, query string) SingleResult {
	if a.gateway != nil {
		var out singleLLMResponse
		sch := llm.Schema{Name: "datetime translation", Required: []string{"datetime_range"}}
		err := a.gateway.CompleteJSON(ctx, singleSystemPrompt, query, sch, &out, 256, DefaultTimeout)
		if err == nil {
			if out.DatetimeRange == "" || out.DatetimeRange == "none" {
				return SingleResult{Explanation: out.Explanation}
			}
			if rng, ok := parseISORange(out.DatetimeRange); ok {
				return SingleResult{Range: rng, Explanation: out.Explanation}
			}
		}
	}
	return a.ruleBasedSingle(query)
}

// TranslateComparison runs the comparison mode of the agent.
func (a *Agent) TranslateComparison(ctx context.Context, query string) ComparisonResult {
	if a.gateway != nil {
		var out comparisonLLMResponse
		sch := llm.Schema{Name: "datetime comparison", Required: []string{"before", "after"}}
		err := a.gateway.CompleteJSON(ctx, comparisonSystemPrompt, query, sch, &out, 256, DefaultTimeout)
		if err == nil {
			before, okB := parseISORange(out.Before)
			after, okA := parseISORange(out.After)
			if okB && okA {
				return ComparisonResult{
					Before:             before,
					After:              after,
					Explanation:        out.Explanation,
					NeedsClarification: out.NeedsClarification,
					Suggestion:         out.Suggestion,
				}
			}
		}
	}
	return a.ruleBasedComparisonFallback()
}

// ruleBasedComparisonFallback is used only when the LLM is unavailable or
// failed; it cannot disambiguate two periods from keywords alone, so it
// always asks for clarification with fallback full-year ranges, per the
// convention that an ambiguous range sets needs_clarification = true.
func (a *Agent) ruleBasedComparisonFallback() ComparisonResult {
	year := a.now().Year()
	full := fullYear(year)
	return ComparisonResult{
		Before:             full,
		After:              full,
		Explanation:        "could not determine two distinct periods from the query text",
		NeedsClarification: true,
		Suggestion:         "please specify the two exact date ranges to compare",
	}
}

func fullYear(year int) geo.DatetimeRange {
	return geo.DatetimeRange{
		Start: fmt.Sprintf("%04d-01-01", year),
		End:   fmt.Sprintf("%04d-12-31", year),
	}
}

func parseISORange(s string) (geo.DatetimeRange, bool) {
	if s == "" || s == "none" {
		return geo.DatetimeRange{}, false
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return geo.DatetimeRange{}, false
	}
	start, end := parts[0], parts[1]
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return geo.DatetimeRange{}, false
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		return geo.DatetimeRange{}, false
	}
	if start > end {
		return geo.DatetimeRange{}, false
	}
	return geo.DatetimeRange{Start: start, End: end}, true
}
