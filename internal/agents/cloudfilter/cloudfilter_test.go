package cloudfilter

import (
	"context"
	"testing"

	"github.com/54b3r/geostac/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func Test_Detect_ExplicitLowClouds(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	r := a.Detect(context.Background(), "Sentinel-2 imagery with clear skies", []string{"sentinel-2-l2a"})
	if r.Filter == nil {
		t.Fatalf("want a filter, got nil (warning=%q)", r.Warning)
	}
	if r.Filter.Threshold != 25 {
		t.Errorf("Threshold = %v, want 25", r.Filter.Threshold)
	}
	if r.Filter.Property != "eo:cloud_cover" {
		t.Errorf("Property = %q", r.Filter.Property)
	}
}

func Test_Detect_ExplicitPercentageOverridesBucket(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	r := a.Detect(context.Background(), "Sentinel-2 imagery with less than 10% cloud cover", []string{"sentinel-2-l2a"})
	if r.Filter == nil {
		t.Fatalf("want a filter, got nil (warning=%q)", r.Warning)
	}
	if r.Filter.Threshold != 10 {
		t.Errorf("Threshold = %v, want the explicit 10, not the bucket default", r.Filter.Threshold)
	}
	if r.Intent != Low {
		t.Errorf("Intent = %q, want low for a 10%% limit", r.Intent)
	}
}

func Test_Detect_WarnsWhenNoCollectionSupportsCloudFiltering(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	r := a.Detect(context.Background(), "SAR flood data for Houston last month with low clouds", []string{"sentinel-1-grd"})
	if r.Filter != nil {
		t.Errorf("want no filter for SAR, got %+v", r.Filter)
	}
	if r.Warning == "" {
		t.Errorf("want a warning when no collection supports cloud filtering")
	}
}

func Test_Detect_NoExplicitMention(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	r := a.Detect(context.Background(), "wildfire activity near Los Angeles", []string{"modis-fire"})
	if r.Filter != nil {
		t.Errorf("want no filter absent explicit cloud mention, got %+v", r.Filter)
	}
	if r.Intent != None {
		t.Errorf("Intent = %q, want none", r.Intent)
	}
}

func Test_Detect_NeverInfersFromUrgency(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	r := a.Detect(context.Background(), "urgent disaster response imagery needed immediately", []string{"sentinel-2-l2a"})
	if r.Intent != None {
		t.Errorf("Intent = %q, want none (urgency must not imply cloud intent)", r.Intent)
	}
}
