package compose

import (
	"context"
	"strings"
	"testing"

	"github.com/54b3r/geostac/internal/agents/intent"
	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/negotiate"
)

func Test_Compose_BriefDescribesDataset(t *testing.T) {
	t.Parallel()
	c := New(nil)
	threshold := 25.0
	msg := c.Compose(context.Background(), Input{
		Intent:         intent.Stac,
		FeatureCount:   8,
		Collections:    []string{"sentinel-2-l2a"},
		LocationName:   "New York City",
		Datetime:       geo.DatetimeRange{Start: "2024-10-01", End: "2024-10-31"},
		CloudThreshold: &threshold,
	})

	for _, want := range []string{"8 tiles", "sentinel-2-l2a", "New York City", "2024-10-01", "2024-10-31", "25% cloud cover"} {
		if !strings.Contains(msg, want) {
			t.Errorf("brief message missing %q: %q", want, msg)
		}
	}
	if strings.HasPrefix(msg, `"`) {
		t.Errorf("brief message must not be wrapped in quotes: %q", msg)
	}
}

func Test_Compose_BriefSingularTile(t *testing.T) {
	t.Parallel()
	c := New(nil)
	msg := c.Compose(context.Background(), Input{Intent: intent.Stac, FeatureCount: 1, Collections: []string{"cop-dem-glo-30"}})
	if !strings.Contains(msg, "1 tile ") {
		t.Fatalf("expected singular 'tile', got %q", msg)
	}
}

func Test_Compose_ContextualNeverMentionsMapWithoutOne(t *testing.T) {
	t.Parallel()
	c := New(nil)
	msg := c.Compose(context.Background(), Input{Intent: intent.Contextual, HasRenderedMap: false})
	if strings.Contains(strings.ToLower(msg), "map") {
		t.Fatalf("contextual response with no rendered map must not reference the map: %q", msg)
	}
}

func Test_Compose_HybridCombinesBriefAndDetailed(t *testing.T) {
	t.Parallel()
	c := New(nil)
	msg := c.Compose(context.Background(), Input{
		Intent:         intent.Hybrid,
		FeatureCount:   3,
		Collections:    []string{"sentinel-2-l2a"},
		HasRenderedMap: true,
	})
	if !strings.Contains(msg, "3 tiles") {
		t.Errorf("hybrid message missing the brief data description: %q", msg)
	}
	if !strings.Contains(msg, "\n\n") {
		t.Errorf("hybrid message should separate data description from analysis: %q", msg)
	}
}

func Test_Compose_GeointMetricsInlined(t *testing.T) {
	t.Parallel()
	c := New(nil)
	msg := c.Compose(context.Background(), Input{
		Intent:        intent.Contextual,
		GeointMetrics: map[string]any{"mean elevation": 1920},
	})
	if !strings.Contains(msg, "mean elevation") || !strings.Contains(msg, "1920") {
		t.Fatalf("expected geoint metric inlined in the narrative, got %q", msg)
	}
}

func Test_Compose_RelaxationPreamblePrepended(t *testing.T) {
	t.Parallel()
	c := New(nil)
	orig, alt := 10.0, 35.0
	rec := negotiate.BuildRecord(
		negotiate.Filters{CloudThresholdPercent: &orig},
		negotiate.Filters{CloudThresholdPercent: &alt},
		"the cloud-cover threshold was raised from 10% to 35%.",
	)
	msg := c.Compose(context.Background(), Input{
		Intent:       intent.Stac,
		FeatureCount: 4,
		Collections:  []string{"sentinel-2-l2a"},
		Relaxation:   &rec,
	})
	if !strings.Contains(msg, "did not return any results") {
		t.Errorf("expected acknowledgement of the missing exact match: %q", msg)
	}
	if !strings.Contains(msg, "raised from 10% to 35%") {
		t.Errorf("expected the relaxation explanation: %q", msg)
	}
	if !strings.HasPrefix(msg, "The exact filters") {
		t.Errorf("relaxation acknowledgement must lead the message: %q", msg)
	}
}

func Test_Compose_CloudWarningIncludedVerbatim(t *testing.T) {
	t.Parallel()
	c := New(nil)
	warning := "Cloud cover filter is not applicable to the selected collections (SAR has no cloud metadata)."
	msg := c.Compose(context.Background(), Input{
		Intent:       intent.Stac,
		FeatureCount: 2,
		Collections:  []string{"sentinel-1-grd"},
		CloudWarning: warning,
	})
	if !strings.Contains(msg, warning) {
		t.Fatalf("cloud warning must appear verbatim, got %q", msg)
	}
}

func Test_EmptyResultMessage_CountsAndSuggestions(t *testing.T) {
	t.Parallel()
	msg := EmptyResultMessage(Input{RawCount: 42, SpatialFilteredCount: 3, FinalCount: 0})
	for _, want := range []string{"42", "3", "0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("empty-result message missing diagnostic count %q: %q", want, msg)
		}
	}
	bullets := strings.Count(msg, "\n- ")
	if bullets < 2 || bullets > 4 {
		t.Errorf("expected 2-4 bulleted suggestions, got %d: %q", bullets, msg)
	}
}

func Test_ErrorMessage_KnownStages(t *testing.T) {
	t.Parallel()
	stages := []string{"unresolved_location", "malformed_query", "deadline_exceeded", "input_validation", "anything_else"}
	seen := map[string]bool{}
	for _, stage := range stages {
		msg := ErrorMessage(stage)
		if msg == "" {
			t.Errorf("ErrorMessage(%q) is empty", stage)
		}
		seen[msg] = true
	}
	if len(seen) < 5 {
		t.Errorf("expected distinct messages per stage, got %d distinct", len(seen))
	}
	if !strings.Contains(ErrorMessage("unresolved_location"), "location") {
		t.Errorf("unresolved_location message should mention the location")
	}
}
