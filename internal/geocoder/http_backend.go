package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/54b3r/geostac/internal/geo"
)

// HTTPBackend queries a Nominatim-compatible "/search" geocoding endpoint
// and reads the first result's bounding box. It is used for both the
// primary and secondary geocoder slots in the chain — constructed twice,
// against two different base URLs, with the same logic.
type HTTPBackend struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTPBackend constructs an HTTPBackend named name against baseURL
// (a Nominatim-compatible search endpoint, e.g.
// "https://nominatim.openstreetmap.org").
func NewHTTPBackend(name, baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &HTTPBackend{name: name, baseURL: baseURL, client: client}
}

func (h *HTTPBackend) Name() string { return h.name }

type nominatimResult struct {
	BoundingBox [4]string `json:"boundingbox"`
	DisplayName string    `json:"display_name"`
}

// Resolve issues one search request, retrying once via exponential backoff
// on a transport error, and parses the first hit's boundingbox field
// ([south, north, west, east] as Nominatim orders it) into a geo.BBox.
func (h *HTTPBackend) Resolve(ctx context.Context, location string) (geo.BBox, bool, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "1")
	reqURL := h.baseURL + "/search?" + q.Encode()

	var results []nominatimResult
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "geostac/1.0")

		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("geocoder: %s: server error %d", h.name, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("geocoder: %s: status %d", h.name, resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&results)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return geo.BBox{}, false, fmt.Errorf("geocoder: %s: %w", h.name, err)
	}
	if len(results) == 0 {
		return geo.BBox{}, false, nil
	}

	return parseNominatimBBox(results[0].BoundingBox)
}

func parseNominatimBBox(raw [4]string) (geo.BBox, bool, error) {
	var vals [4]float64
	for i, s := range raw {
		if s == "" {
			return geo.BBox{}, false, nil
		}
		var v float64
		if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
			return geo.BBox{}, false, fmt.Errorf("geocoder: malformed bbox component %q: %w", s, err)
		}
		vals[i] = v
	}
	// Nominatim order is [south, north, west, east]; geo.BBox is
	// [west, south, east, north].
	return geo.BBox{vals[2], vals[0], vals[3], vals[1]}, true, nil
}
