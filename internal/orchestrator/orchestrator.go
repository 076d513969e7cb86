// Package orchestrator implements the Orchestrator (component P): the
// single entry point that wires the Intent Classifier, the four
// concurrently-run extraction agents, the STAC Query Builder, STAC Client,
// Spatial Filter, Tile Selector, Alternative-Result Negotiator, and
// Response Composer into one request/response turn, and records the
// outcome in the Conversation Store.
//
// The fan-out/fan-in of the four parallel agents is grounded on
// golang.org/x/sync/errgroup, retrieved from the rest of the example pack
// (the teacher's own agent loop runs its tool calls sequentially, but the
// wider corpus's fan-out pattern is a closer match for four independent
// LLM calls that must all complete, or degrade, before the turn advances).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/geostac/internal/agents/cloudfilter"
	"github.com/54b3r/geostac/internal/agents/collection"
	"github.com/54b3r/geostac/internal/agents/datetime"
	"github.com/54b3r/geostac/internal/agents/intent"
	"github.com/54b3r/geostac/internal/agents/location"
	"github.com/54b3r/geostac/internal/compose"
	"github.com/54b3r/geostac/internal/convo"
	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/negotiate"
	"github.com/54b3r/geostac/internal/query"
	"github.com/54b3r/geostac/internal/registry"
	"github.com/54b3r/geostac/internal/spatial"
	"github.com/54b3r/geostac/internal/stac"
	"github.com/54b3r/geostac/internal/tiles"
)

// Pin is an optional map-pin coordinate supplied alongside the query text;
// it becomes the spatial focus only when no location name is extracted
// from the text itself.
type Pin struct {
	Lat, Lon    float64
	RadiusMiles float64 // 0 uses defaultPinRadiusMiles
}

const defaultPinRadiusMiles = 5

// Classification mirrors the Intent Classifier's output in the response.
type Classification struct {
	IntentType intent.Type `json:"intent_type"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
}

// TranslationMetadata surfaces the assembled query for debugging/UI use.
type TranslationMetadata struct {
	StacQuery   *query.StacQuery    `json:"stac_query,omitempty"`
	Collections []string            `json:"collections"`
	Datetime    geo.DatetimeRange   `json:"datetime"`
	CloudFilter *cloudfilter.Filter `json:"cloud_filter,omitempty"`
}

// ResponseData carries the selected tiles and the map viewport to render
// them in.
type ResponseData struct {
	Features []stac.Feature `json:"features"`
	Bbox     geo.BBox       `json:"bbox"`
	Center   [2]float64     `json:"center"`
	Zoom     int            `json:"zoom"`
}

// QueryType categorizes the response as a whole: one of the four intent
// kinds, or the two response-only outcomes below.
type QueryType string

const (
	// QueryTypeAlternativeResults marks a turn whose exact filters were
	// relaxed by the negotiator before anything matched.
	QueryTypeAlternativeResults QueryType = "alternative_results"
	// QueryTypeError marks a turn that failed with a hard error.
	QueryTypeError QueryType = "error"
)

// Response is the Orchestrator's single return type for every turn,
// success or failure.
type Response struct {
	Success             bool                 `json:"success"`
	Message             string               `json:"message"`
	QueryType           QueryType            `json:"query_type"`
	Data                *ResponseData        `json:"data,omitempty"`
	Classification      Classification      `json:"classification"`
	ShowingAlternatives bool                 `json:"showing_alternatives,omitempty"`
	OriginalFilters     *negotiate.Filters   `json:"original_filters,omitempty"`
	AlternativeFilters  *negotiate.Filters   `json:"alternative_filters,omitempty"`
	TranslationMetadata *TranslationMetadata `json:"translation_metadata,omitempty"`

	// failureStage records the error taxonomy stage for a failed turn, for
	// the durable query-audit log; it is not part of the public API.
	failureStage string
}

// History is the durable query-audit log the Orchestrator writes to after
// every turn, when configured. Implementations must not block the turn on
// slow I/O; TranslateQuery calls LogQuery after the response is already
// computed and ignores its error.
type History interface {
	LogQuery(ctx context.Context, sessionID, queryText string, success bool, failureStage string) error
}

// Pipeline wires every component into one orchestrated turn.
type Pipeline struct {
	intentClassifier *intent.Classifier
	collectionAgent  *collection.Agent
	locationAgent    *location.Agent
	datetimeAgent    *datetime.Agent
	cloudAgent       *cloudfilter.Agent
	queryBuilder     *query.Builder
	stacClient       *stac.Client
	tileSelector     *tiles.Selector
	composer         *compose.Composer
	registry         *registry.Registry
	store            *convo.Store
	minOverlap       float64
	now              func() time.Time
	history          History
}

// New constructs a Pipeline. store must be non-nil; the other components
// are constructed by the caller (cmd/geostacd/commands/wiring.go) from
// config. hist may be nil to disable the durable query-audit log.
func New(
	intentClassifier *intent.Classifier,
	collectionAgent *collection.Agent,
	locationAgent *location.Agent,
	datetimeAgent *datetime.Agent,
	cloudAgent *cloudfilter.Agent,
	queryBuilder *query.Builder,
	stacClient *stac.Client,
	tileSelector *tiles.Selector,
	composer *compose.Composer,
	reg *registry.Registry,
	store *convo.Store,
	minOverlap float64,
	hist History,
) *Pipeline {
	if minOverlap <= 0 {
		minOverlap = spatial.DefaultMinOverlap
	}
	return &Pipeline{
		intentClassifier: intentClassifier,
		collectionAgent:  collectionAgent,
		locationAgent:    locationAgent,
		datetimeAgent:    datetimeAgent,
		cloudAgent:       cloudAgent,
		queryBuilder:     queryBuilder,
		stacClient:       stacClient,
		tileSelector:     tileSelector,
		composer:         composer,
		registry:         reg,
		store:            store,
		minOverlap:       minOverlap,
		now:              time.Now,
		history:          hist,
	}
}

// Reset clears a session's conversation state.
func (p *Pipeline) Reset(sessionID string) {
	p.store.Reset(sessionID)
}

// datetimeBypassed reports whether the Datetime Translation Agent should
// be skipped for the selected collections: any static collection, or an
// all-composite set (the query builder emits a sortby instead).
func (p *Pipeline) datetimeBypassed(collections []string) bool {
	if len(collections) == 0 {
		return false
	}
	allComposite := true
	for _, id := range collections {
		if p.registry.IsStatic(id) {
			return true
		}
		if !p.registry.IsComposite(id) {
			allComposite = false
		}
	}
	return allComposite
}

var compareKeywords = []string{"compare", " vs ", " versus ", "compared to"}

func isComparisonQuery(q string) bool {
	lq := " " + strings.ToLower(q) + " "
	for _, kw := range compareKeywords {
		if strings.Contains(lq, kw) {
			return true
		}
	}
	return false
}

// TranslateQuery runs one full turn: classify, extract, build, search,
// filter, select, negotiate if empty, and compose. It never returns an
// error — every failure mode is surfaced as a Response with Success=false
// and a user-facing Message, since a turn always produces a reply.
// TranslateQuery runs one full turn and, when a history store is
// configured, logs the outcome to the durable query-audit log before
// returning. Logging is best-effort: it runs synchronously after the
// response is computed, and its error is ignored, so it never fails the turn.
func (p *Pipeline) TranslateQuery(ctx context.Context, sessionID, queryText string, pin *Pin) Response {
	resp := p.translateQuery(ctx, sessionID, queryText, pin)
	if p.history != nil {
		stage := ""
		if !resp.Success {
			stage = resp.failureStage
		}
		p.history.LogQuery(context.Background(), sessionID, queryText, resp.Success, stage)
	}
	return resp
}

func (p *Pipeline) translateQuery(ctx context.Context, sessionID, queryText string, pin *Pin) Response {
	ctx, cancel := context.WithTimeout(ctx, OverallTurnTimeout)
	defer cancel()

	if strings.TrimSpace(queryText) == "" {
		return Response{
			Message:      compose.ErrorMessage("input_validation"),
			QueryType:    QueryTypeError,
			failureStage: "input_validation",
		}
	}

	unlock := p.store.Lock(sessionID)
	defer unlock()

	ir := p.intentClassifier.Classify(ctx, queryText)
	classification := Classification{IntentType: ir.Type, Confidence: ir.Confidence, Reasoning: ir.Reasoning}

	switch ir.Type {
	case intent.Vision:
		msg := "Vision analysis requires a rendered map image, which this assistant does not capture directly; ask a satellite-data question instead to pull fresh tiles."
		resp := Response{Success: true, Message: msg, QueryType: QueryType(ir.Type), Classification: classification}
		p.store.Update(sessionID, queryText, msg, nil, nil, false, p.now())
		return resp

	case intent.Contextual:
		cctx := p.store.Get(sessionID)
		msg := p.composer.Compose(ctx, compose.Input{
			Intent:         intent.Contextual,
			Query:          queryText,
			ChatHistory:    cctx.ChatHistory,
			HasRenderedMap: cctx.HasRenderedMap,
		})
		resp := Response{Success: true, Message: msg, QueryType: QueryType(ir.Type), Classification: classification}
		p.store.Update(sessionID, queryText, msg, nil, nil, false, p.now())
		return resp
	}

	// Stac or Hybrid: run the four extraction agents concurrently.
	var (
		collections []string
		locResult   location.Result
		single      datetime.SingleResult
		comparison  datetime.ComparisonResult
		comparing   = isComparisonQuery(queryText)
		cloudResult cloudfilter.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	collectionsDone := make(chan struct{})

	g.Go(func() error {
		defer close(collectionsDone)
		collections = p.collectionAgent.Select(gctx, queryText)
		return nil
	})
	g.Go(func() error {
		locResult = p.locationAgent.Extract(gctx, queryText)
		return nil
	})
	g.Go(func() error {
		// The agent is bypassed entirely when the selected collections make
		// a datetime filter meaningless (static, or all composite).
		<-collectionsDone
		if p.datetimeBypassed(collections) {
			return nil
		}
		if comparing {
			comparison = p.datetimeAgent.TranslateComparison(gctx, queryText)
		} else {
			single = p.datetimeAgent.TranslateSingle(gctx, queryText)
		}
		return nil
	})
	g.Go(func() error {
		<-collectionsDone
		cloudResult = p.cloudAgent.Detect(gctx, queryText, collections)
		return nil
	})
	_ = g.Wait() // each agent degrades to a rule-based fallback internally; this never errors.

	if comparing && comparison.NeedsClarification {
		msg := comparison.Suggestion
		if msg == "" {
			msg = "Please specify the two exact date ranges to compare."
		}
		resp := Response{Success: true, Message: msg, QueryType: QueryType(ir.Type), Classification: classification}
		p.store.Update(sessionID, queryText, msg, nil, collections, false, p.now())
		return resp
	}

	var locationName *string
	if locResult.Name != nil {
		locationName = locResult.Name
	}

	if comparing {
		return p.runComparison(ctx, sessionID, queryText, classification, ir.Type, collections, locationName, pin, comparison, cloudResult)
	}
	return p.runSingle(ctx, sessionID, queryText, classification, ir.Type, collections, locationName, pin, single.Range, cloudResult)
}

// runSingle executes the I->J->K->L->(M?)->N chain for a single datetime
// window, including one pass of negotiation on an empty result.
func (p *Pipeline) runSingle(
	ctx context.Context,
	sessionID, queryText string,
	classification Classification,
	queryType intent.Type,
	collections []string,
	locationName *string,
	pin *Pin,
	datetimeRange geo.DatetimeRange,
	cloudResult cloudfilter.Result,
) Response {
	sq, bbox, err := p.build(ctx, collections, locationName, datetimeRange, cloudResult.Filter, pin)
	if err != nil {
		return p.fatal(sessionID, queryText, classification, queryType, err)
	}

	rawFeatures, spatialFiltered, overlaps, err := p.search(ctx, sq, bbox)
	if err != nil {
		return p.fatal(sessionID, queryText, classification, queryType, err)
	}

	areaKm2 := boxAreaKm2(bbox)
	scored := p.tileSelector.Select(ctx, queryText, spatialFiltered, overlaps, areaKm2, p.now())

	var negotiated *negotiate.Record
	if len(scored) == 0 {
		var negotiatedScored []tiles.ScoredTile
		var negotiatedQuery *query.StacQuery
		negotiatedScored, negotiatedQuery, negotiated = p.negotiate(ctx, queryText, collections, locationName, datetimeRange, cloudResult.Filter, bbox, areaKm2)
		if negotiated != nil {
			scored = negotiatedScored
			sq = negotiatedQuery
		}
	}

	resp := Response{
		Success:    true,
		QueryType:  QueryType(queryType),
		Classification: classification,
		TranslationMetadata: &TranslationMetadata{
			StacQuery:   sq,
			Collections: collections,
			Datetime:    datetimeRange,
			CloudFilter: cloudResult.Filter,
		},
	}
	if negotiated != nil {
		resp.QueryType = QueryTypeAlternativeResults
		resp.ShowingAlternatives = true
		orig := negotiated.Original
		alt := negotiated.Alternative
		resp.OriginalFilters = &orig
		resp.AlternativeFilters = &alt
	}

	if len(scored) == 0 {
		resp.Success = true
		resp.Message = compose.EmptyResultMessage(compose.Input{
			RawCount:             len(rawFeatures),
			SpatialFilteredCount: len(spatialFiltered),
			FinalCount:           0,
		})
		p.store.Update(sessionID, queryText, resp.Message, nil, collections, false, p.now())
		return resp
	}

	features := make([]stac.Feature, len(scored))
	for i, s := range scored {
		features[i] = s.Feature
	}

	center := bbox.Center()
	resp.Data = &ResponseData{
		Features: features,
		Bbox:     bbox,
		Center:   center,
		Zoom:     zoomForArea(areaKm2),
	}

	var cloudThreshold *float64
	if cloudResult.Filter != nil {
		t := cloudResult.Filter.Threshold
		cloudThreshold = &t
	}

	composeIn := compose.Input{
		Intent:         queryType,
		Query:          queryText,
		ChatHistory:    p.store.Get(sessionID).ChatHistory,
		FeatureCount:   len(features),
		Collections:    collections,
		LocationName:   derefOr(locationName, ""),
		Bbox:           bbox,
		Datetime:       datetimeRange,
		CloudThreshold: cloudThreshold,
		CloudWarning:   cloudResult.Warning,
		Relaxation:     negotiated,
		HasRenderedMap: true,
	}
	resp.Message = p.composer.Compose(ctx, composeIn)

	p.store.Update(sessionID, queryText, resp.Message, &bbox, collections, true, p.now())
	return resp
}

// runComparison executes two independent single-window searches, one per
// side of the comparison, and composes a combined message.
func (p *Pipeline) runComparison(
	ctx context.Context,
	sessionID, queryText string,
	classification Classification,
	queryType intent.Type,
	collections []string,
	locationName *string,
	pin *Pin,
	cmp datetime.ComparisonResult,
	cloudResult cloudfilter.Result,
) Response {
	beforeResp := p.runSingle(ctx, sessionID+":before", queryText, classification, queryType, collections, locationName, pin, cmp.Before, cloudResult)
	afterResp := p.runSingle(ctx, sessionID+":after", queryText, classification, queryType, collections, locationName, pin, cmp.After, cloudResult)

	beforeCount, afterCount := 0, 0
	if beforeResp.Data != nil {
		beforeCount = len(beforeResp.Data.Features)
	}
	if afterResp.Data != nil {
		afterCount = len(afterResp.Data.Features)
	}

	msg := fmt.Sprintf("%s\n\nComparing %s (%d tiles) against %s (%d tiles): %s",
		cmp.Explanation,
		cmp.Before.STACInterval(), beforeCount,
		cmp.After.STACInterval(), afterCount,
		comparisonVerdict(beforeCount, afterCount))

	resp := Response{
		Success:        true,
		Message:        msg,
		QueryType:      QueryType(queryType),
		Classification: classification,
	}
	if afterResp.Data != nil {
		resp.Data = afterResp.Data
	} else if beforeResp.Data != nil {
		resp.Data = beforeResp.Data
	}
	if afterResp.TranslationMetadata != nil {
		resp.TranslationMetadata = afterResp.TranslationMetadata
	}

	var bboxPtr *geo.BBox
	if resp.Data != nil {
		b := resp.Data.Bbox
		bboxPtr = &b
	}
	p.store.Update(sessionID, queryText, msg, bboxPtr, collections, resp.Data != nil, p.now())
	return resp
}

func comparisonVerdict(before, after int) string {
	switch {
	case after > before:
		return "more matching tiles were found in the later period."
	case after < before:
		return "fewer matching tiles were found in the later period."
	default:
		return "both periods returned the same number of matching tiles."
	}
}

// build assembles the StacQuery and resolves the effective bbox, folding
// in the pin as a fallback spatial focus when no location name was
// extracted.
func (p *Pipeline) build(ctx context.Context, collections []string, locationName *string, dt geo.DatetimeRange, cloudFilter *cloudfilter.Filter, pin *Pin) (*query.StacQuery, geo.BBox, error) {
	buildCtx := ctx
	if locationName != nil {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, LocationResolverTotalTimeout)
		defer cancel()
	}

	sq, err := p.queryBuilder.Build(buildCtx, query.Inputs{
		Collections:  collections,
		LocationName: locationName,
		Datetime:     dt,
		CloudFilter:  cloudFilter,
	})
	if err != nil {
		return nil, geo.BBox{}, err
	}

	var bbox geo.BBox
	switch {
	case sq.Bbox != nil:
		bbox = *sq.Bbox
	case pin != nil:
		bbox = pinToBBox(*pin)
		if err := bbox.Validate(); err != nil {
			return nil, geo.BBox{}, &query.ErrMalformedQuery{Reason: err.Error()}
		}
		sq.Bbox = &bbox
	}

	sq.Limit = tiles.SearchLimit(boxAreaKm2(bbox), collections, p.registry)
	return sq, bbox, nil
}

// search runs the STAC Client call and the Spatial Filter pass.
func (p *Pipeline) search(ctx context.Context, sq *query.StacQuery, bbox geo.BBox) (raw, filtered []stac.Feature, overlaps map[string]float64, err error) {
	raw, err = p.stacClient.Search(ctx, sq)
	if err != nil {
		return nil, nil, nil, err
	}
	filtered, overlaps = spatial.FilterWithOverlap(raw, bbox, p.minOverlap)
	return raw, filtered, overlaps, nil
}

// negotiate retries the search through each relaxation step in order,
// stopping at the first one that produces a non-empty tile selection.
func (p *Pipeline) negotiate(
	ctx context.Context,
	queryText string,
	collections []string,
	locationName *string,
	dt geo.DatetimeRange,
	cloudFilter *cloudfilter.Filter,
	bbox geo.BBox,
	areaKm2 float64,
) ([]tiles.ScoredTile, *query.StacQuery, *negotiate.Record) {
	original := negotiate.Filters{Datetime: dt, Collections: collections}
	if cloudFilter != nil {
		t := cloudFilter.Threshold
		original.CloudThresholdPercent = &t
	}

	current := original
	currentCloudFilter := cloudFilter
	tried := map[negotiate.Step]bool{}

	for {
		step, ok := negotiate.NextStep(current, tried)
		if !ok {
			return nil, nil, nil
		}
		tried[step] = true

		next, explanation, err := negotiate.Apply(step, current)
		if err != nil {
			continue
		}

		nextCloudFilter := currentCloudFilter
		if step == negotiate.StepWidenCloudThreshold && nextCloudFilter != nil {
			f := *nextCloudFilter
			f.Threshold = *next.CloudThresholdPercent
			nextCloudFilter = &f
		}

		sq, nextBbox, err := p.build(ctx, next.Collections, locationName, next.Datetime, nextCloudFilter, nil)
		if err != nil {
			current = next
			currentCloudFilter = nextCloudFilter
			continue
		}
		if nextBbox == (geo.BBox{}) {
			nextBbox = bbox
			sq.Bbox = &bbox
		}

		_, filtered, overlaps, err := p.search(ctx, sq, nextBbox)
		if err != nil {
			current = next
			currentCloudFilter = nextCloudFilter
			continue
		}

		scored := p.tileSelector.Select(ctx, queryText, filtered, overlaps, areaKm2, p.now())
		if len(scored) > 0 {
			rec := negotiate.BuildRecord(original, next, explanation)
			return scored, sq, &rec
		}
		current = next
		currentCloudFilter = nextCloudFilter
	}
}

func (p *Pipeline) fatal(sessionID, queryText string, classification Classification, queryType intent.Type, err error) Response {
	stage := "internal_error"
	switch {
	case errors.As(err, new(*query.ErrUnresolvedLocation)):
		stage = "unresolved_location"
	case errors.As(err, new(*query.ErrMalformedQuery)):
		stage = "malformed_query"
	case errors.Is(err, context.DeadlineExceeded):
		stage = "deadline_exceeded"
	}
	msg := compose.ErrorMessage(stage)
	resp := Response{Success: false, Message: msg, QueryType: QueryTypeError, Classification: classification, failureStage: stage}
	p.store.Update(sessionID, queryText, msg, nil, nil, false, p.now())
	return resp
}

func pinToBBox(pin Pin) geo.BBox {
	radiusMiles := pin.RadiusMiles
	if radiusMiles <= 0 {
		radiusMiles = defaultPinRadiusMiles
	}
	radiusKm := radiusMiles * 1.60934
	latDeg := radiusKm / 110.574
	lonDeg := radiusKm / (111.320 * math.Cos(pin.Lat*math.Pi/180))
	return geo.BBox{pin.Lon - lonDeg, pin.Lat - latDeg, pin.Lon + lonDeg, pin.Lat + latDeg}
}

// boxAreaKm2 approximates a bbox's surface area via an equirectangular
// projection centered on its latitude; good enough for the limit/cap
// heuristics that consume it, which only need order-of-magnitude accuracy.
func boxAreaKm2(bbox geo.BBox) float64 {
	if bbox == (geo.BBox{}) {
		return 5_000_000 // continental-scale default for an unbounded search.
	}
	lonSpan := bbox.East() - bbox.West()
	if bbox.CrossesDateline() {
		lonSpan = 360 + bbox.East() - bbox.West()
	}
	latSpan := bbox.North() - bbox.South()
	center := bbox.Center()
	kmPerLonDeg := 111.320 * math.Cos(center[1]*math.Pi/180)
	kmPerLatDeg := 110.574
	width := math.Abs(lonSpan) * kmPerLonDeg
	height := math.Abs(latSpan) * kmPerLatDeg
	return width * height
}

func zoomForArea(areaKm2 float64) int {
	switch {
	case areaKm2 < 50:
		return 13
	case areaKm2 < 500:
		return 11
	case areaKm2 < 5_000:
		return 9
	case areaKm2 < 50_000:
		return 7
	case areaKm2 < 500_000:
		return 5
	default:
		return 3
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
