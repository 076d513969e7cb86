// Package negotiate implements the Alternative-Result Negotiator
// (component M): invoked only when the initial tile selection is empty,
// it relaxes filters in a fixed order and reports what changed.
package negotiate

import (
	"fmt"

	"github.com/54b3r/geostac/internal/geo"
)

// Filters is the snapshot of filter state captured before and after
// relaxation.
type Filters struct {
	CloudThresholdPercent *float64          `json:"cloud_cover,omitempty"`
	Datetime              geo.DatetimeRange `json:"datetime"`
	Collections           []string          `json:"collections,omitempty"`
}

// Record is produced once a relaxation step succeeds (or all are
// exhausted), always capturing both the original and the attempted
// filters, so a caller can always explain what changed and why.
type Record struct {
	Original    Filters
	Alternative Filters
	Explanation string
}

// Step is one relaxation attempt the orchestrator can try, in the fixed
// order: widen cloud threshold, widen datetime window, drop to a single
// versatile collection.
type Step int

const (
	StepWidenCloudThreshold Step = iota
	StepWidenDatetime
	StepDropToSingleCollection
)

const (
	cloudThresholdStep  = 25
	maxCloudThreshold   = 95
	datetimeWidenFactor = 2
)

// versatileDefault is the "most-versatile single collection" fallback:
// the canonical optical default.
const versatileDefault = "sentinel-2-l2a"

// NextStep returns the next applicable relaxation step given the current
// filters and which steps have already been tried, or ok=false if none
// remain.
func NextStep(current Filters, tried map[Step]bool) (Step, bool) {
	if !tried[StepWidenCloudThreshold] && current.CloudThresholdPercent != nil {
		return StepWidenCloudThreshold, true
	}
	if !tried[StepWidenDatetime] && !current.Datetime.IsZero() {
		return StepWidenDatetime, true
	}
	if !tried[StepDropToSingleCollection] && len(current.Collections) > 1 {
		return StepDropToSingleCollection, true
	}
	return 0, false
}

// Apply performs the given relaxation step and returns the resulting
// Filters alongside a human-readable explanation of what changed.
func Apply(step Step, current Filters) (Filters, string, error) {
	switch step {
	case StepWidenCloudThreshold:
		if current.CloudThresholdPercent == nil {
			return current, "", fmt.Errorf("negotiate: no cloud filter to widen")
		}
		next := *current.CloudThresholdPercent + cloudThresholdStep
		if next > maxCloudThreshold {
			next = maxCloudThreshold
		}
		out := current
		out.CloudThresholdPercent = &next
		return out, fmt.Sprintf("raised the cloud-cover threshold from %.0f%% to %.0f%% to find matching tiles",
			*current.CloudThresholdPercent, next), nil

	case StepWidenDatetime:
		if current.Datetime.IsZero() {
			return current, "", fmt.Errorf("negotiate: no datetime range to widen")
		}
		widened, err := widen(current.Datetime, datetimeWidenFactor)
		if err != nil {
			return current, "", err
		}
		out := current
		out.Datetime = widened
		return out, fmt.Sprintf("widened the date range from %s to %s to find matching tiles",
			current.Datetime.STACInterval(), widened.STACInterval()), nil

	case StepDropToSingleCollection:
		if len(current.Collections) <= 1 {
			return current, "", fmt.Errorf("negotiate: already a single collection")
		}
		out := current
		out.Collections = []string{versatileDefault}
		return out, fmt.Sprintf("narrowed from %d collections to %s, the most broadly available dataset",
			len(current.Collections), versatileDefault), nil

	default:
		return current, "", fmt.Errorf("negotiate: unknown step %d", step)
	}
}

// BuildRecord assembles the Record once a step has produced (or exhausted
// attempts to produce) a non-empty result.
func BuildRecord(original, alternative Filters, explanation string) Record {
	return Record{Original: original, Alternative: alternative, Explanation: explanation}
}
