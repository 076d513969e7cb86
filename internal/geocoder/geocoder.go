// Package geocoder implements the Location Resolver: it turns a place name
// (or an LLM-extracted location phrase) into a geo.BBox by walking an
// ordered chain of backends and caching the result.
//
// The Backend/Chain shape follows the common Go pattern of composing
// several single-purpose interfaces (one per vendor) behind one lookup
// call; the cache is a ristretto-based TTL cache of the kind used for
// spatial query results elsewhere.
package geocoder

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/54b3r/geostac/internal/geo"
)

// ErrUnresolved is returned when no backend in the chain could resolve the
// location, after every backend (including the LLM-derived fallback) failed.
type ErrUnresolved struct {
	Location string
}

func (e *ErrUnresolved) Error() string {
	return fmt.Sprintf("geocoder: could not resolve location %q", e.Location)
}

// Backend resolves a single location phrase to a bounding box. Each backend
// in the chain is tried in order; a backend signals "I don't know this
// place" by returning (geo.BBox{}, false, nil) rather than an error — an
// error is reserved for a backend that is reachable but failed to answer
// (a reason to try the next backend, logged but not fatal).
type Backend interface {
	Name() string
	Resolve(ctx context.Context, location string) (geo.BBox, bool, error)
}

// Cache is a TTL-bounded lookup cache in front of the backend chain,
// wrapping ristretto the way the retrieved spatial-query cache does:
// Get/Set guarded by a fixed TTL, cost-counted by entry.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCache builds a Cache with the given capacity (approximate number of
// entries) and TTL. A typical default is 500 entries / 24h.
func NewCache(capacity int64, ttl time.Duration) (*Cache, error) {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoder: new cache: %w", err)
	}
	return &Cache{cache: rc, ttl: ttl}, nil
}

// Get returns a cached bbox for the normalized location key, if present.
func (c *Cache) Get(key string) (geo.BBox, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return geo.BBox{}, false
	}
	bbox, ok := v.(geo.BBox)
	return bbox, ok
}

// Set stores a resolved bbox under the normalized location key with the
// cache's configured TTL.
func (c *Cache) Set(key string, bbox geo.BBox) {
	c.cache.SetWithTTL(key, bbox, 1, c.ttl)
}

// Chain resolves a location by trying each backend in order, checking the
// cache first and populating it with whichever backend answered.
type Chain struct {
	backends []Backend
	cache    *Cache
}

// NewChain builds a resolver chain. Backends are tried in the given order;
// geostacd builds predefined-region table, primary geocoder, secondary
// geocoder, then LLM-derived bbox. No separate free-text fallback geocoder
// is provided.
func NewChain(cache *Cache, backends ...Backend) *Chain {
	return &Chain{backends: backends, cache: cache}
}

// Resolve normalizes location, checks the cache, and otherwise walks the
// backend chain until one succeeds. The winning result is cached before
// returning. Returns *ErrUnresolved if every backend declines.
func (c *Chain) Resolve(ctx context.Context, location string) (geo.BBox, error) {
	key := normalize(location)
	if c.cache != nil {
		if bbox, ok := c.cache.Get(key); ok {
			return bbox, nil
		}
	}

	var lastErr error
	for _, b := range c.backends {
		bbox, ok, err := b.Resolve(ctx, location)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		if err := bbox.Validate(); err != nil {
			lastErr = fmt.Errorf("geocoder: backend %s returned invalid bbox: %w", b.Name(), err)
			continue
		}
		if c.cache != nil {
			c.cache.Set(key, bbox)
		}
		return bbox, nil
	}

	if lastErr != nil {
		return geo.BBox{}, fmt.Errorf("%w (last backend error: %v)", &ErrUnresolved{Location: location}, lastErr)
	}
	return geo.BBox{}, &ErrUnresolved{Location: location}
}

func normalize(location string) string {
	key := make([]byte, 0, len(location))
	prevSpace := false
	for _, r := range location {
		switch {
		case r >= 'A' && r <= 'Z':
			key = append(key, byte(r-'A'+'a'))
			prevSpace = false
		case r == ' ' || r == '\t' || r == '\n':
			if !prevSpace && len(key) > 0 {
				key = append(key, ' ')
			}
			prevSpace = true
		default:
			key = append(key, string(r)...)
			prevSpace = false
		}
	}
	for len(key) > 0 && key[len(key)-1] == ' ' {
		key = key[:len(key)-1]
	}
	return string(key)
}
