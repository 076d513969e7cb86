// Package geo defines the spatial and temporal value types shared across the
// query orchestration pipeline: bounding boxes and datetime ranges. Geometry
// math (intersection, area) lives in internal/spatial and is built on
// [github.com/paulmach/orb]; this package holds the plain wire-shaped values
// that cross package boundaries and get serialized into the STAC request body.
package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// BBox is an axis-aligned longitude/latitude rectangle: [west, south, east, north].
// Dateline crossing (west > 0 && east < 0) is a valid, meaningful state and
// must never be "fixed" by swapping or wrapping coordinates.
type BBox [4]float64

// West returns the western edge (minimum longitude, or the dateline-crossing
// start when the box wraps the antimeridian).
func (b BBox) West() float64 { return b[0] }

// South returns the southern edge (minimum latitude).
func (b BBox) South() float64 { return b[1] }

// East returns the eastern edge (maximum longitude, or the dateline-crossing
// end when the box wraps the antimeridian).
func (b BBox) East() float64 { return b[2] }

// North returns the northern edge (maximum latitude).
func (b BBox) North() float64 { return b[3] }

// CrossesDateline reports whether the box wraps the antimeridian, i.e. its
// western edge is east of its eastern edge in conventional terms.
func (b BBox) CrossesDateline() bool {
	return b[0] > 0 && b[2] < 0
}

// Validate checks the invariants required by every BBox that reaches the
// STAC client: longitudes in [-180, 180], latitudes in [-90, 90], a valid
// west/east ordering (including the dateline-crossing exception), and
// south < north.
func (b BBox) Validate() error {
	if b[0] < -180 || b[0] > 180 || b[2] < -180 || b[2] > 180 {
		return fmt.Errorf("geo: longitude out of range in bbox %v", b)
	}
	if b[1] < -90 || b[1] > 90 || b[3] < -90 || b[3] > 90 {
		return fmt.Errorf("geo: latitude out of range in bbox %v", b)
	}
	if !(b[0] < b[2] || b.CrossesDateline()) {
		return fmt.Errorf("geo: west must be < east (or crossing the dateline) in bbox %v", b)
	}
	if b[1] >= b[3] {
		return fmt.Errorf("geo: south must be < north in bbox %v", b)
	}
	return nil
}

// Center returns the [lon, lat] midpoint of the box. For a dateline-crossing
// box the longitude midpoint is computed across the antimeridian.
func (b BBox) Center() [2]float64 {
	lon := (b[0] + b[2]) / 2
	if b.CrossesDateline() {
		lon = b[0] + (360+b[2]-b[0])/2
		if lon > 180 {
			lon -= 360
		}
	}
	lat := (b[1] + b[3]) / 2
	return [2]float64{lon, lat}
}

// Bound converts the BBox to an [orb.Bound] for use by the geometry-math
// layer (internal/spatial). Dateline-crossing boxes are passed through
// verbatim; callers that need true antimeridian-aware geometry operations
// must special-case CrossesDateline themselves, as orb.Bound has no native
// dateline concept.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b[0], b[1]},
		Max: orb.Point{b[2], b[3]},
	}
}

// FromBound converts an [orb.Bound] back to a BBox.
func FromBound(b orb.Bound) BBox {
	return BBox{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

// DatetimeRange is an ISO-8601 interval used both as a single search window
// and, in comparison mode, as one side of a before/after pair.
type DatetimeRange struct {
	// Start is the inclusive interval start, "YYYY-MM-DD" or full RFC3339.
	Start string
	// End is the inclusive interval end, "YYYY-MM-DD" or full RFC3339. Empty
	// means an open-ended interval ("start/..").
	End string
}

// IsZero reports whether the range carries no data (absent datetime filter).
func (d DatetimeRange) IsZero() bool {
	return d.Start == "" && d.End == ""
}

// MarshalJSON encodes the range as its STAC interval string, or null when
// absent, so response payloads carry "2024-10-01/2024-10-31" rather than a
// start/end object.
func (d DatetimeRange) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.STACInterval())
}

// STACInterval formats the range as the wire-level STAC datetime interval:
// "start/end", or "start/.." when End is empty.
func (d DatetimeRange) STACInterval() string {
	if d.IsZero() {
		return ""
	}
	end := d.End
	if end == "" {
		end = ".."
	}
	return d.Start + "/" + end
}
