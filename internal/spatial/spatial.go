// Package spatial implements the Spatial Filter (component K): it drops
// STAC features whose footprint overlap with the requested bbox falls
// below a threshold, using the tile's own area as the denominator so a
// small tile fully inside a huge requested region is not penalized.
//
// Built on [github.com/paulmach/orb] and [github.com/paulmach/orb/planar],
// grounded on the retrieved Capella catalog client's use of orb/geojson
// for STAC geometry.
package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/stac"
)

// DefaultMinOverlap is the default minimum overlap ratio.
const DefaultMinOverlap = 0.1

// Filter drops features below minOverlap; bbox is the requested search
// region. Dateline-crossing request boxes are split into two segments
// before intersection so the area math stays correct across the
// antimeridian.
func Filter(features []stac.Feature, bbox geo.BBox, minOverlap float64) []stac.Feature {
	kept, _ := FilterWithOverlap(features, bbox, minOverlap)
	return kept
}

// FilterWithOverlap behaves like Filter but also returns the overlap ratio
// of each kept feature against the requested bbox, keyed by feature ID —
// the Tile Selector's coverage score consumes this map directly rather
// than recomputing the intersection itself.
func FilterWithOverlap(features []stac.Feature, bbox geo.BBox, minOverlap float64) ([]stac.Feature, map[string]float64) {
	if bbox == (geo.BBox{}) {
		// No spatial filter was requested: pass everything through at full
		// nominal overlap rather than reject every tile on a degenerate
		// intersection against a zero bbox.
		overlaps := make(map[string]float64, len(features))
		for _, f := range features {
			overlaps[f.ID] = 1
		}
		return features, overlaps
	}

	requestBounds := splitDateline(bbox)
	out := make([]stac.Feature, 0, len(features))
	overlaps := make(map[string]float64, len(features))
	for _, f := range features {
		tileBound := orb.Bound{
			Min: orb.Point{f.Bbox[0], f.Bbox[1]},
			Max: orb.Point{f.Bbox[2], f.Bbox[3]},
		}
		ratio := overlapRatio(tileBound, requestBounds)
		if ratio >= minOverlap {
			out = append(out, f)
			overlaps[f.ID] = ratio
		}
	}
	return out, overlaps
}

// overlapRatio computes intersection_area / tile_bbox_area across one or
// two request-region segments (two only when the request bbox crosses the
// dateline), summing intersection area across segments.
func overlapRatio(tile orb.Bound, requestSegments []orb.Bound) float64 {
	tileArea := boundArea(tile)
	if tileArea <= 0 {
		return 0
	}

	var intersectionArea float64
	for _, seg := range requestSegments {
		inter, ok := intersectBound(tile, seg)
		if !ok {
			continue
		}
		intersectionArea += boundArea(inter)
	}
	return intersectionArea / tileArea
}

// intersectBound returns the overlapping region of two bounds, or false
// when they do not overlap. orb.Bound only offers the Intersects
// predicate, so the clipped bound is computed here.
func intersectBound(a, b orb.Bound) (orb.Bound, bool) {
	if !a.Intersects(b) {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}, true
}

func boundArea(b orb.Bound) float64 {
	if b.IsEmpty() {
		return 0
	}
	ring := orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
	}
	return planar.Area(ring)
}

// splitDateline returns one orb.Bound for a normal bbox, or two segments
// (west..180 and -180..east) when bbox crosses the antimeridian.
func splitDateline(bbox geo.BBox) []orb.Bound {
	if !bbox.CrossesDateline() {
		return []orb.Bound{bbox.Bound()}
	}
	return []orb.Bound{
		{Min: orb.Point{bbox.West(), bbox.South()}, Max: orb.Point{180, bbox.North()}},
		{Min: orb.Point{-180, bbox.South()}, Max: orb.Point{bbox.East(), bbox.North()}},
	}
}
