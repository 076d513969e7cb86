// Package tiles implements the Tile Selector (component L): the core
// ranking algorithm that picks a bounded, coverage-maximizing set of STAC
// features for a single acquisition window, via a fast rule-based path or
// an LLM-ranked smart path.
package tiles

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/llm"
	"github.com/54b3r/geostac/internal/registry"
	"github.com/54b3r/geostac/internal/stac"
)

// Weights are the dynamic scoring weights, summing to 100, remapped by
// query phrasing.
type Weights struct {
	Recency, Clouds, Coverage, Quality float64
}

var defaultWeights = Weights{Recency: 40, Clouds: 30, Coverage: 20, Quality: 10}

// phraseWeights maps a detected phrasing keyword to its weight remap; the
// first entry in this list whose keyword the query contains wins, wherever
// the keywords appear in the query.
var phraseWeights = []struct {
	keyword string
	weights Weights
}{
	{"most recent", Weights{Recency: 70, Clouds: 15, Coverage: 10, Quality: 5}},
	{"latest", Weights{Recency: 70, Clouds: 15, Coverage: 10, Quality: 5}},
	{"cloudless", Weights{Recency: 15, Clouds: 60, Coverage: 15, Quality: 10}},
	{"clear", Weights{Recency: 15, Clouds: 60, Coverage: 15, Quality: 10}},
	{"high resolution", Weights{Recency: 20, Clouds: 20, Coverage: 10, Quality: 50}},
	{"full coverage", Weights{Recency: 20, Clouds: 15, Coverage: 50, Quality: 15}},
}

// WeightsForQuery remaps the default scoring weights based on
// quality-sensitive phrasing in the query text.
func WeightsForQuery(query string) Weights {
	q := strings.ToLower(query)
	for _, pw := range phraseWeights {
		if strings.Contains(q, pw.keyword) {
			return pw.weights
		}
	}
	return defaultWeights
}

// qualitySensitiveKeywords force the smart (LLM-ranked) path even when the
// candidate count and area would otherwise qualify for the fast path.
var qualitySensitiveKeywords = []string{"best", "clearest", "most recent", "highest quality", "latest"}

func isQualitySensitive(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range qualitySensitiveKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// temporalFactor scales the STAC query limit derivation by collection
// acquisition cadence (denser revisit -> larger candidate pool needed).
var temporalFactor = map[string]float64{
	"cop-dem-glo-30": 1,
	"nasadem":        1,
	"landsat-c2-l2":  4,
	"hls2-l30":       10,
	"sentinel-2-l2a": 8,
	"modis-ndvi":     5,
	"modis-fire":     5,
	"viirs-fire":     5,
	"sentinel-1-grd": 5,
	"noaa-gfs":       5,
}

// SearchLimit derives the STAC query `limit` from the requested area and
// the collections in play: spatial_tiles = ceil(area / tileArea * 1.3),
// scaled by the collections' temporal factor, clamped to [50, 1000].
func SearchLimit(areaKm2 float64, collections []string, reg *registry.Registry) int {
	maxTileArea := 0.0
	maxFactor := 1.0
	for _, id := range collections {
		p, err := reg.Get(id)
		if err != nil {
			continue
		}
		tileArea := p.TypicalTileSizeKm * p.TypicalTileSizeKm
		if tileArea > maxTileArea {
			maxTileArea = tileArea
		}
		if f, ok := temporalFactor[id]; ok && f > maxFactor {
			maxFactor = f
		}
	}
	if maxTileArea <= 0 {
		maxTileArea = 100
	}
	spatialTiles := math.Ceil(areaKm2 / maxTileArea * 1.3)
	limit := int(spatialTiles * maxFactor)
	if limit < 50 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}

// selectionCap returns the area-aware tile-count cap: <=10 for areas
// <100 km2, <=20 for <1000 km2, <=50 otherwise, always within [5, 50].
func selectionCap(areaKm2 float64) int {
	switch {
	case areaKm2 < 100:
		return 10
	case areaKm2 < 1000:
		return 20
	default:
		return 50
	}
}

// useFastPath reports whether the candidate count/area/phrasing qualify
// for the rule-based fast path instead of the LLM-ranked smart path.
func useFastPath(candidateCount int, areaKm2 float64, query string) bool {
	if isQualitySensitive(query) {
		return false
	}
	tileCap := selectionCap(areaKm2)
	return candidateCount <= tileCap
}

// Breakdown is the per-dimension score contributing to a tile's total.
type Breakdown struct {
	Recency, CloudCover, Coverage, QualityFlags float64
}

// Total sums the breakdown and must stay within 0 <= Total <= 100.
func (b Breakdown) Total() float64 {
	return b.Recency + b.CloudCover + b.Coverage + b.QualityFlags
}

// ScoredTile pairs a feature with its scoring breakdown.
type ScoredTile struct {
	Feature   stac.Feature
	Breakdown Breakdown
	Overlap   float64
}

// Selector runs both the fast and smart paths.
type Selector struct {
	gateway  *llm.Gateway
	registry *registry.Registry
}

// New constructs a Selector. gateway may be nil to force fast-path-only
// operation.
func New(gateway *llm.Gateway, reg *registry.Registry) *Selector {
	return &Selector{gateway: gateway, registry: reg}
}

// Select runs the full L algorithm: resolution filter, single-acquisition
// grouping, scoring, and path selection, returning a bounded slice of
// ScoredTile (5 <= len <= 50, or fewer if fewer candidates exist).
func (s *Selector) Select(ctx context.Context, query string, features []stac.Feature, overlaps map[string]float64, areaKm2 float64, now time.Time) []ScoredTile {
	if len(features) == 0 {
		return nil
	}

	resFiltered := s.filterByBestResolution(features)
	if len(resFiltered) == 0 {
		resFiltered = features
	}

	grouped := s.bestAcquisitionGroup(resFiltered)
	if len(grouped) == 0 {
		grouped = resFiltered
	}

	weights := WeightsForQuery(query)
	scored := make([]ScoredTile, 0, len(grouped))
	for _, f := range grouped {
		overlap := overlaps[f.ID]
		bd := score(f, overlap, now, weights)
		scored = append(scored, ScoredTile{Feature: f, Breakdown: bd, Overlap: overlap})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Breakdown.Total() > scored[j].Breakdown.Total()
	})

	tileCap := selectionCap(areaKm2)
	if tileCap < 5 {
		tileCap = 5
	}

	if !useFastPath(len(features), areaKm2, query) && s.gateway != nil {
		if ranked := s.smartPathRank(ctx, query, scored, tileCap); ranked != nil {
			scored = ranked
		}
	}

	if len(scored) > tileCap {
		scored = scored[:tileCap]
	}
	if len(scored) > 50 {
		scored = scored[:50]
	}
	return scored
}

// filterByBestResolution keeps only collections whose resolution is within
// 1.2x of the best (smallest) resolution_meters among the candidates.
func (s *Selector) filterByBestResolution(features []stac.Feature) []stac.Feature {
	best := math.MaxFloat64
	resByCollection := map[string]float64{}
	for _, f := range features {
		res, ok := resByCollection[f.Collection]
		if !ok {
			p, err := s.registry.Get(f.Collection)
			if err != nil {
				continue
			}
			res = p.ResolutionMeters
			resByCollection[f.Collection] = res
		}
		if res < best {
			best = res
		}
	}
	if best == math.MaxFloat64 {
		return features
	}
	tolerance := best * 1.2

	out := make([]stac.Feature, 0, len(features))
	for _, f := range features {
		res, ok := resByCollection[f.Collection]
		if !ok || res > tolerance {
			continue
		}
		out = append(out, f)
	}
	return out
}

// bestAcquisitionGroup groups candidates by acquisition hour (truncating
// each feature's datetime property to the hour) and returns the most
// recent group that still has members, never mixing timestamps across
// groups.
func (s *Selector) bestAcquisitionGroup(features []stac.Feature) []stac.Feature {
	groups := map[time.Time][]stac.Feature{}
	for _, f := range features {
		t, ok := f.DateTime()
		if !ok {
			continue
		}
		hour := t.Truncate(time.Hour)
		groups[hour] = append(groups[hour], f)
	}
	if len(groups) == 0 {
		return nil
	}

	var latest time.Time
	for hour := range groups {
		if hour.After(latest) {
			latest = hour
		}
	}
	return groups[latest]
}

func score(f stac.Feature, overlap float64, now time.Time, w Weights) Breakdown {
	recencyScore := 0.0
	if t, ok := f.DateTime(); ok {
		recencyScore = recencyCurve(now.Sub(t))
	}

	cloudScore := 100.0
	if pct, ok := f.CloudCover(); ok {
		cloudScore = cloudCurve(pct)
	}

	coverageScore := coverageCurve(overlap)

	qualityScore := 50.0
	if s, ok := f.QualityFlag("landsat:quality"); ok {
		switch strings.ToLower(s) {
		case "high":
			qualityScore = 100
		case "medium":
			qualityScore = 70
		case "low":
			qualityScore = 30
		}
	}

	return Breakdown{
		Recency:      recencyScore * w.Recency / 100,
		CloudCover:   cloudScore * w.Clouds / 100,
		Coverage:     coverageScore * w.Coverage / 100,
		QualityFlags: qualityScore * w.Quality / 100,
	}
}

func recencyCurve(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days <= 7:
		return 100
	case days <= 30:
		return lerp(days, 7, 30, 100, 85)
	case days <= 60:
		return lerp(days, 30, 60, 85, 60)
	case days <= 180:
		return lerp(days, 60, 180, 60, 30)
	default:
		return math.Max(0, lerp(days, 180, 365, 30, 0))
	}
}

func cloudCurve(pct float64) float64 {
	switch {
	case pct <= 5:
		return 100
	case pct <= 10:
		return lerp(pct, 5, 10, 100, 80)
	case pct <= 20:
		return lerp(pct, 10, 20, 80, 50)
	case pct <= 50:
		return lerp(pct, 20, 50, 50, 15)
	default:
		return math.Max(0, lerp(pct, 50, 100, 15, 0))
	}
}

func coverageCurve(overlap float64) float64 {
	switch {
	case overlap >= 0.9:
		return 100
	case overlap >= 0.5:
		return lerp(overlap, 0.5, 0.9, 50, 100)
	case overlap >= 0.1:
		return lerp(overlap, 0.1, 0.5, 25, 50)
	default:
		return lerp(overlap, 0, 0.1, 0, 25)
	}
}

// lerp linearly interpolates y over [x0, x1] -> [y0, y1], clamped to x's range.
func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	t := (x - x0) / (x1 - x0)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return y0 + t*(y1-y0)
}
