package spatial

import (
	"testing"

	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/stac"
)

func Test_Filter_DropsLowOverlap(t *testing.T) {
	t.Parallel()
	requested := geo.BBox{-122.5, 47.4, -122.2, 47.8}
	features := []stac.Feature{
		{ID: "fully-inside", Bbox: [4]float64{-122.45, 47.45, -122.25, 47.75}},
		{ID: "far-away", Bbox: [4]float64{10, 10, 11, 11}},
	}
	out := Filter(features, requested, DefaultMinOverlap)
	if len(out) != 1 || out[0].ID != "fully-inside" {
		t.Fatalf("Filter = %+v, want only fully-inside", out)
	}
}

func Test_Filter_SmallTileFullyCoveredByLargeRequestSurvives(t *testing.T) {
	t.Parallel()
	// A large requested region with a small tile fully inside it: using
	// the tile area as denominator should yield ~100% overlap, not a tiny
	// fraction of the requested area.
	requested := geo.BBox{-130, 20, -60, 55}
	tile := stac.Feature{ID: "tiny-tile", Bbox: [4]float64{-100, 35, -99.9, 35.1}}
	out := Filter([]stac.Feature{tile}, requested, DefaultMinOverlap)
	if len(out) != 1 {
		t.Fatalf("expected small fully-covered tile to survive, got %+v", out)
	}
}

func Test_Filter_NoRequestBboxPassesThrough(t *testing.T) {
	t.Parallel()
	features := []stac.Feature{{ID: "a", Bbox: [4]float64{1, 2, 3, 4}}}
	out := Filter(features, geo.BBox{}, DefaultMinOverlap)
	if len(out) != 1 {
		t.Fatalf("expected pass-through with zero bbox, got %+v", out)
	}
}

func Test_FilterWithOverlap_PartialOverlapRatio(t *testing.T) {
	t.Parallel()
	// Tile [0,0,2,2], request [1,0,3,2]: exactly half the tile is inside.
	requested := geo.BBox{1, 0, 3, 2}
	tile := stac.Feature{ID: "half-in", Bbox: [4]float64{0, 0, 2, 2}}
	kept, overlaps := FilterWithOverlap([]stac.Feature{tile}, requested, DefaultMinOverlap)
	if len(kept) != 1 {
		t.Fatalf("expected the half-overlapping tile to survive, got %+v", kept)
	}
	ratio := overlaps["half-in"]
	if ratio < 0.49 || ratio > 0.51 {
		t.Fatalf("overlap ratio = %v, want ~0.5", ratio)
	}
}

func Test_Filter_DatelineCrossingRequest(t *testing.T) {
	t.Parallel()
	// Request crosses the dateline: west=170, east=-170.
	requested := geo.BBox{170, -10, -170, 10}
	tile := stac.Feature{ID: "near-dateline", Bbox: [4]float64{175, -5, 179, 5}}
	out := Filter([]stac.Feature{tile}, requested, DefaultMinOverlap)
	if len(out) != 1 {
		t.Fatalf("expected dateline-adjacent tile to intersect, got %+v", out)
	}
}
