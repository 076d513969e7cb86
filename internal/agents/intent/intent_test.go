package intent

import (
	"context"
	"testing"
)

func Test_RuleBased_DisplayOnlyIsStac(t *testing.T) {
	t.Parallel()
	r := RuleBased("show me Seattle")
	if r.Type != Stac {
		t.Errorf("Type = %q, want stac", r.Type)
	}
	if !r.NeedsSatelliteData || r.NeedsVisionAnalysis {
		t.Errorf("flags wrong for stac: %+v", r)
	}
}

func Test_RuleBased_DisplayWithAnalysisIsHybrid(t *testing.T) {
	t.Parallel()
	r := RuleBased("show me Sentinel-2 imagery of NYC and analyze the flooding")
	if r.Type != Hybrid {
		t.Errorf("Type = %q, want hybrid", r.Type)
	}
}

func Test_RuleBased_PastTenseIsContextual(t *testing.T) {
	t.Parallel()
	r := RuleBased("How was NYC impacted by Hurricane Sandy?")
	if r.Type != Contextual {
		t.Errorf("Type = %q, want contextual", r.Type)
	}
	if r.Confidence > 0.5 {
		t.Errorf("confidence = %v, want <= 0.5 for rule-based", r.Confidence)
	}
}

func Test_RuleBased_VisionKeyword(t *testing.T) {
	t.Parallel()
	r := RuleBased("can you see any damage in this image?")
	if r.Type != Vision {
		t.Errorf("Type = %q, want vision", r.Type)
	}
}

func Test_RuleBased_QuestionWithoutDisplayIsContextual(t *testing.T) {
	t.Parallel()
	r := RuleBased("what is a cloud cover property?")
	if r.Type != Contextual {
		t.Errorf("Type = %q, want contextual", r.Type)
	}
}

func Test_Classify_NilGatewayUsesRuleBased(t *testing.T) {
	t.Parallel()
	c := New(nil)
	r := c.Classify(context.Background(), "show me Seattle")
	if r.Type != Stac {
		t.Errorf("Type = %q, want stac", r.Type)
	}
}
