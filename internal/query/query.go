// Package query implements the STAC Query Builder (component I): a
// deterministic, LLM-free assembly of the final search body from the
// outputs of the collection, location, datetime, and cloud filter agents.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/54b3r/geostac/internal/agents/cloudfilter"
	"github.com/54b3r/geostac/internal/geo"
	"github.com/54b3r/geostac/internal/geocoder"
	"github.com/54b3r/geostac/internal/registry"
)

// ErrMalformedQuery indicates the assembled query violates an invariant —
// a bug in an upstream agent, fatal for the turn.
type ErrMalformedQuery struct {
	Reason string
}

func (e *ErrMalformedQuery) Error() string {
	return fmt.Sprintf("query: malformed query: %s", e.Reason)
}

// ErrUnresolvedLocation is surfaced when the Location Resolver could not
// produce a bbox for the extracted location name.
type ErrUnresolvedLocation struct {
	Location string
	Cause    error
}

func (e *ErrUnresolvedLocation) Error() string {
	return fmt.Sprintf("query: could not resolve location %q: %v", e.Location, e.Cause)
}

func (e *ErrUnresolvedLocation) Unwrap() error { return e.Cause }

// SortEntry is one element of the STAC sortby array.
type SortEntry struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Clause is a single property comparison under the STAC "query" extension.
// It marshals to the extension's operator-keyed form, e.g.
// {"eo:cloud_cover": {"lt": 25}}.
type Clause struct {
	Op    string
	Value float64
}

// MarshalJSON encodes the clause as {op: value}, the shape the STAC query
// extension expects on the wire.
func (c Clause) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{c.Op: c.Value})
}

// UnmarshalJSON decodes the single-operator {op: value} form.
func (c *Clause) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("query: clause must have exactly one operator, got %d", len(m))
	}
	for op, v := range m {
		c.Op = op
		c.Value = v
	}
	return nil
}

// StacQuery is the assembled search body.
type StacQuery struct {
	Collections []string          `json:"collections"`
	Bbox        *geo.BBox         `json:"bbox,omitempty"`
	Datetime    string            `json:"datetime,omitempty"`
	Query       map[string]Clause `json:"query,omitempty"`
	Sortby      []SortEntry       `json:"sortby,omitempty"`
	Limit       int               `json:"limit"`
}

const defaultLimit = 100

// Inputs bundles the resolved agent outputs the builder assembles from.
type Inputs struct {
	Collections  []string
	LocationName *string
	Datetime     geo.DatetimeRange
	CloudFilter  *cloudfilter.Filter
}

// Builder assembles StacQuery values.
type Builder struct {
	registry *registry.Registry
	resolver *geocoder.Chain
}

// New constructs a Builder.
func New(reg *registry.Registry, resolver *geocoder.Chain) *Builder {
	return &Builder{registry: reg, resolver: resolver}
}

// Build runs five deterministic steps: initialize with
// default sort/limit, apply static/composite datetime rules, apply the
// cloud filter if applicable, resolve the location to a bbox, and validate.
func (b *Builder) Build(ctx context.Context, in Inputs) (*StacQuery, error) {
	q := &StacQuery{
		Collections: in.Collections,
		Sortby:      []SortEntry{{Field: "datetime", Direction: "desc"}},
		Limit:       defaultLimit,
	}

	anyStatic := false
	allComposite := len(in.Collections) > 0
	for _, id := range in.Collections {
		if b.registry.IsStatic(id) {
			anyStatic = true
		}
		if !b.registry.IsComposite(id) {
			allComposite = false
		}
	}

	switch {
	case anyStatic:
		// datetime stays absent.
	case allComposite:
		// sortby stays, datetime stays absent.
	case !in.Datetime.IsZero():
		q.Datetime = in.Datetime.STACInterval()
	}

	if in.CloudFilter != nil {
		anyCloudFilterable := false
		for _, id := range in.Collections {
			if b.registry.SupportsCloudFiltering(id) {
				anyCloudFilterable = true
				break
			}
		}
		if anyCloudFilterable {
			q.Query = map[string]Clause{
				in.CloudFilter.Property: {Op: in.CloudFilter.Op, Value: in.CloudFilter.Threshold},
			}
		}
	}

	if in.LocationName != nil && *in.LocationName != "" {
		bbox, err := b.resolver.Resolve(ctx, *in.LocationName)
		if err != nil {
			return nil, &ErrUnresolvedLocation{Location: *in.LocationName, Cause: err}
		}
		q.Bbox = &bbox
	}

	if err := q.validate(b.registry); err != nil {
		return nil, &ErrMalformedQuery{Reason: err.Error()}
	}

	return q, nil
}

func (q *StacQuery) validate(reg *registry.Registry) error {
	if len(q.Collections) == 0 {
		return fmt.Errorf("collections must not be empty")
	}

	anyStatic, allComposite := false, true
	for _, id := range q.Collections {
		if reg.IsStatic(id) {
			anyStatic = true
		}
		if !reg.IsComposite(id) {
			allComposite = false
		}
	}
	if anyStatic && q.Datetime != "" {
		return fmt.Errorf("datetime must be absent when any collection is static")
	}
	if allComposite {
		if q.Datetime != "" {
			return fmt.Errorf("datetime must be absent when all collections are composite")
		}
		if len(q.Sortby) != 1 || q.Sortby[0].Field != "datetime" || q.Sortby[0].Direction != "desc" {
			return fmt.Errorf("sortby must be [{datetime, desc}] when all collections are composite")
		}
	}

	if len(q.Query) > 0 {
		anyCloudFilterable := false
		for _, id := range q.Collections {
			if reg.SupportsCloudFiltering(id) {
				anyCloudFilterable = true
				break
			}
		}
		if !anyCloudFilterable {
			return fmt.Errorf("cloud-cover query clause present but no selected collection is cloud-filterable")
		}
	}

	if q.Bbox != nil {
		if err := q.Bbox.Validate(); err != nil {
			return err
		}
	}

	if q.Limit < 50 || q.Limit > 1000 {
		return fmt.Errorf("limit %d out of range [50, 1000]", q.Limit)
	}

	return nil
}
