package negotiate

import (
	"testing"

	"github.com/54b3r/geostac/internal/geo"
)

func Test_NextStep_Order(t *testing.T) {
	t.Parallel()
	cloud := 10.0
	filters := Filters{
		CloudThresholdPercent: &cloud,
		Datetime:              geo.DatetimeRange{Start: "2024-01-01", End: "2024-01-31"},
		Collections:           []string{"sentinel-2-l2a", "landsat-c2-l2"},
	}

	step, ok := NextStep(filters, map[Step]bool{})
	if !ok || step != StepWidenCloudThreshold {
		t.Fatalf("first step = %v, %v; want StepWidenCloudThreshold", step, ok)
	}

	step, ok = NextStep(filters, map[Step]bool{StepWidenCloudThreshold: true})
	if !ok || step != StepWidenDatetime {
		t.Fatalf("second step = %v, %v; want StepWidenDatetime", step, ok)
	}

	step, ok = NextStep(filters, map[Step]bool{StepWidenCloudThreshold: true, StepWidenDatetime: true})
	if !ok || step != StepDropToSingleCollection {
		t.Fatalf("third step = %v, %v; want StepDropToSingleCollection", step, ok)
	}

	_, ok = NextStep(filters, map[Step]bool{StepWidenCloudThreshold: true, StepWidenDatetime: true, StepDropToSingleCollection: true})
	if ok {
		t.Fatalf("expected no more steps once all three are tried")
	}
}

func Test_Apply_WidenCloudThreshold(t *testing.T) {
	t.Parallel()
	cloud := 10.0
	out, explanation, err := Apply(StepWidenCloudThreshold, Filters{CloudThresholdPercent: &cloud})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *out.CloudThresholdPercent != 35 {
		t.Errorf("threshold = %v, want 35", *out.CloudThresholdPercent)
	}
	if explanation == "" {
		t.Errorf("want non-empty explanation")
	}
}

func Test_Apply_WidenCloudThresholdCapsAt95(t *testing.T) {
	t.Parallel()
	cloud := 90.0
	out, _, err := Apply(StepWidenCloudThreshold, Filters{CloudThresholdPercent: &cloud})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *out.CloudThresholdPercent != 95 {
		t.Errorf("threshold = %v, want capped at 95", *out.CloudThresholdPercent)
	}
}

func Test_Apply_WidenDatetimeDoubles(t *testing.T) {
	t.Parallel()
	rng := geo.DatetimeRange{Start: "2024-01-01", End: "2024-01-31"}
	out, _, err := Apply(StepWidenDatetime, Filters{Datetime: rng})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Datetime.IsZero() {
		t.Fatalf("widened range is zero")
	}
}

func Test_Apply_DropToSingleCollection(t *testing.T) {
	t.Parallel()
	out, _, err := Apply(StepDropToSingleCollection, Filters{Collections: []string{"sentinel-1-grd", "cop-dem-glo-30"}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Collections) != 1 || out.Collections[0] != versatileDefault {
		t.Errorf("Collections = %v, want [%s]", out.Collections, versatileDefault)
	}
}

func Test_NegotiatorScenario_CloudCoverSubstitution(t *testing.T) {
	t.Parallel()
	cloud := 10.0
	original := Filters{CloudThresholdPercent: &cloud}
	alt, explanation, err := Apply(StepWidenCloudThreshold, original)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	record := BuildRecord(original, alt, explanation)
	if *record.Original.CloudThresholdPercent != 10 {
		t.Errorf("original filter should stay recorded as 10")
	}
	if *record.Alternative.CloudThresholdPercent != 35 {
		t.Errorf("alternative filter = %v, want 35", *record.Alternative.CloudThresholdPercent)
	}
}
