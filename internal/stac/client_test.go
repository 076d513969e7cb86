package stac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/54b3r/geostac/internal/query"
)

func Test_Search_DecodesFeaturesAndDropsMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type": "FeatureCollection",
			"features": []map[string]any{
				{
					"id":         "good-1",
					"collection": "sentinel-2-l2a",
					"bbox":       []float64{-122.5, 47.4, -122.2, 47.8},
					"properties": map[string]any{"datetime": "2024-10-05T00:00:00Z"},
				},
				{
					"id":         "bad-missing-collection",
					"bbox":       []float64{-122.5, 47.4, -122.2, 47.8},
					"properties": map[string]any{},
				},
				{
					"id":         "bad-bbox",
					"collection": "sentinel-2-l2a",
					"bbox":       []float64{1, 2},
					"properties": map[string]any{},
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	q := &query.StacQuery{Collections: []string{"sentinel-2-l2a"}, Limit: 100}
	features, err := c.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("got %d features, want 1 (malformed ones dropped): %+v", len(features), features)
	}
	if features[0].ID != "good-1" {
		t.Errorf("ID = %q", features[0].ID)
	}
}

func Test_Search_ServerErrorReturnsErr(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	q := &query.StacQuery{Collections: []string{"sentinel-2-l2a"}, Limit: 100}
	if _, err := c.Search(context.Background(), q); err == nil {
		t.Fatalf("want error for 400 response")
	}
}
