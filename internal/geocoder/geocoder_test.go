package geocoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/54b3r/geostac/internal/geo"
)

type stubBackend struct {
	name string
	bbox geo.BBox
	ok   bool
	err  error
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Resolve(_ context.Context, _ string) (geo.BBox, bool, error) {
	return s.bbox, s.ok, s.err
}

func Test_Chain_FirstBackendWins(t *testing.T) {
	t.Parallel()
	first := &stubBackend{name: "first", bbox: geo.BBox{-1, -1, 1, 1}, ok: true}
	second := &stubBackend{name: "second", bbox: geo.BBox{-2, -2, 2, 2}, ok: true}

	chain := NewChain(nil, first, second)
	got, err := chain.Resolve(context.Background(), "somewhere")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != first.bbox {
		t.Errorf("Resolve = %v, want first backend's bbox %v", got, first.bbox)
	}
}

func Test_Chain_FallsThroughOnDecline(t *testing.T) {
	t.Parallel()
	declines := &stubBackend{name: "declines", ok: false}
	wins := &stubBackend{name: "wins", bbox: geo.BBox{10, 10, 20, 20}, ok: true}

	chain := NewChain(nil, declines, wins)
	got, err := chain.Resolve(context.Background(), "somewhere")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != wins.bbox {
		t.Errorf("Resolve = %v, want %v", got, wins.bbox)
	}
}

func Test_Chain_FallsThroughOnBackendError(t *testing.T) {
	t.Parallel()
	fails := &stubBackend{name: "fails", err: errors.New("network error")}
	wins := &stubBackend{name: "wins", bbox: geo.BBox{10, 10, 20, 20}, ok: true}

	chain := NewChain(nil, fails, wins)
	got, err := chain.Resolve(context.Background(), "somewhere")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != wins.bbox {
		t.Errorf("Resolve = %v, want %v", got, wins.bbox)
	}
}

func Test_Chain_UnresolvedWhenAllDecline(t *testing.T) {
	t.Parallel()
	chain := NewChain(nil, &stubBackend{name: "a", ok: false}, &stubBackend{name: "b", ok: false})
	_, err := chain.Resolve(context.Background(), "nowhere")
	var unresolved *ErrUnresolved
	if !errors.As(err, &unresolved) {
		t.Fatalf("want *ErrUnresolved, got %v", err)
	}
}

func Test_Chain_RejectsInvalidBBox(t *testing.T) {
	t.Parallel()
	bad := &stubBackend{name: "bad", bbox: geo.BBox{200, -1, 1, 1}, ok: true}
	chain := NewChain(nil, bad)
	_, err := chain.Resolve(context.Background(), "bogus place")
	if err == nil {
		t.Fatalf("want error for invalid bbox, got nil")
	}
}

func Test_Chain_CachesResolvedResult(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(10, time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	cache.cache.Wait()

	calls := 0
	counting := &countingBackend{stubBackend: stubBackend{name: "counting", bbox: geo.BBox{1, 1, 2, 2}, ok: true}, calls: &calls}
	chain := NewChain(cache, counting)

	if _, err := chain.Resolve(context.Background(), "Place"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cache.cache.Wait()
	if _, err := chain.Resolve(context.Background(), "place"); err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if calls != 1 {
		t.Errorf("backend called %d times, want 1 (second lookup should hit cache)", calls)
	}
}

type countingBackend struct {
	stubBackend
	calls *int
}

func (c *countingBackend) Resolve(ctx context.Context, location string) (geo.BBox, bool, error) {
	*c.calls++
	return c.stubBackend.Resolve(ctx, location)
}

func Test_RegionBackend_ResolvesKnownRegion(t *testing.T) {
	t.Parallel()
	rb := NewRegionBackend()
	bbox, ok, err := rb.Resolve(context.Background(), "California")
	if err != nil || !ok {
		t.Fatalf("Resolve = (%v, %v, %v)", bbox, ok, err)
	}
	if err := bbox.Validate(); err != nil {
		t.Errorf("region bbox invalid: %v", err)
	}
}

func Test_RegionBackend_DeclinesUnknown(t *testing.T) {
	t.Parallel()
	rb := NewRegionBackend()
	_, ok, err := rb.Resolve(context.Background(), "somewhere nobody has heard of")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Errorf("expected unknown region to decline")
	}
}

func Test_Normalize_CaseAndWhitespace(t *testing.T) {
	t.Parallel()
	if normalize("  California  ") != normalize("california") {
		t.Errorf("normalize should fold case and trim whitespace")
	}
}
