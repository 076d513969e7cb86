// Package stac implements the STAC Client (component J): it POSTs the
// assembled search body to a STAC search endpoint and decodes the
// GeoJSON FeatureCollection response, preserving feature order.
//
// The item/feature shape and the POST-then-decode pattern are grounded on
// the retrieved Capella STAC catalog client, which wraps geometry in
// [github.com/paulmach/orb/geojson]; this client keeps that geometry
// library but narrows the feature model to what the rest of the pipeline
// consumes (bbox, collection, properties).
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paulmach/orb/geojson"

	"github.com/54b3r/geostac/internal/query"
)

// DefaultDeadline bounds a single search call to 30 seconds.
const DefaultDeadline = 30 * time.Second

// Feature is a single STAC item as consumed downstream. Features with a
// malformed bbox or missing collection are discarded by Search before
// being returned to the caller.
type Feature struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Bbox       [4]float64        `json:"bbox"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry,omitempty"`
}

// DateTime returns the feature's acquisition time parsed from the
// "datetime" property, or false when absent or malformed.
func (f Feature) DateTime() (time.Time, bool) {
	s, ok := f.Properties["datetime"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CloudCover returns the "eo:cloud_cover" percentage, or false when the
// collection carries no cloud metadata (SAR, DEM).
func (f Feature) CloudCover() (float64, bool) {
	switch v := f.Properties["eo:cloud_cover"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// QualityFlag returns the string value of a collection-specific quality
// property such as "landsat:quality", or false when absent.
func (f Feature) QualityFlag(name string) (string, bool) {
	s, ok := f.Properties[name].(string)
	return s, ok
}

// Client POSTs assembled queries to a STAC search endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New constructs a Client against the given STAC search URL.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultDeadline}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

type featureCollectionResponse struct {
	Type     string           `json:"type"`
	Features []rawSTACFeature `json:"features"`
}

type rawSTACFeature struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Bbox       []float64         `json:"bbox"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

// Search POSTs q to the configured endpoint, retrying once on a transient
// transport error with backoff, and returns the decoded feature list.
// Malformed features (bad bbox, missing collection) are dropped rather than
// failing the whole search.
func (c *Client) Search(ctx context.Context, q *query.StacQuery) ([]Feature, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDeadline)
	defer cancel()

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("stac: marshal query: %w", err)
	}

	var fc featureCollectionResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("stac: server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("stac: status %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&fc)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("stac: search: %w", err)
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, raw := range fc.Features {
		if raw.Collection == "" || len(raw.Bbox) != 4 {
			continue
		}
		features = append(features, Feature{
			ID:         raw.ID,
			Collection: raw.Collection,
			Bbox:       [4]float64{raw.Bbox[0], raw.Bbox[1], raw.Bbox[2], raw.Bbox[3]},
			Properties: raw.Properties,
			Geometry:   raw.Geometry,
		})
	}
	return features, nil
}
