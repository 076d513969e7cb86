package geocoder

import (
	"context"
	"strings"

	"github.com/54b3r/geostac/internal/geo"
)

// RegionBackend resolves a small set of well-known region/continent names
// from a baked-in table before any network call is attempted. It is always
// first in the chain: looking up "amazon basin" or "california" locally is
// both faster and more reproducible than round-tripping to a geocoder.
type RegionBackend struct {
	table map[string]geo.BBox
}

// NewRegionBackend builds a RegionBackend from the default baked-in region
// table. Keys are matched case-insensitively after normalization.
func NewRegionBackend() *RegionBackend {
	return &RegionBackend{table: defaultRegions}
}

func (r *RegionBackend) Name() string { return "predefined-region" }

func (r *RegionBackend) Resolve(_ context.Context, location string) (geo.BBox, bool, error) {
	bbox, ok := r.table[strings.ToLower(strings.TrimSpace(location))]
	return bbox, ok, nil
}

// defaultRegions is a small, intentionally conservative set of named
// regions whose bounding boxes are stable enough to hardcode. Anything not
// in this table falls through to the geocoder backends.
var defaultRegions = map[string]geo.BBox{
	"amazon basin":      {-79.0, -20.0, -44.0, 8.0},
	"amazon rainforest": {-79.0, -20.0, -44.0, 8.0},
	"california":        {-124.48, 32.53, -114.13, 42.01},
	"sahara":            {-17.0, 15.0, 39.0, 32.0},
	"sahara desert":     {-17.0, 15.0, 39.0, 32.0},
	"horn of africa":    {32.0, -5.0, 51.5, 15.0},
	"great lakes":       {-93.0, 41.0, -76.0, 49.5},
	"himalayas":         {72.0, 26.0, 97.0, 36.5},
	"gulf coast":        {-97.5, 24.5, -80.0, 31.0},
	"pacific northwest": {-125.0, 42.0, -116.0, 49.0},
}
