package collection

import (
	"context"
	"testing"

	"github.com/54b3r/geostac/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func Test_KeywordSelect_PlatformOverridesUseCase(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	got := KeywordSelect("SAR flood data for Houston", reg)
	want := []string{"sentinel-1-grd"}
	assertEqual(t, got, want)
}

func Test_KeywordSelect_DoesNotFalsePositiveOnSolar(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	got := KeywordSelect("solar panel siting imagery", reg)
	want := []string{"sentinel-2-l2a", "landsat-c2-l2"}
	assertEqual(t, got, want)
}

func Test_KeywordSelect_Elevation(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	got := KeywordSelect("elevation data for Colorado", reg)
	want := []string{"cop-dem-glo-30", "nasadem"}
	assertEqual(t, got, want)
}

func Test_KeywordSelect_GenericDefault(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	got := KeywordSelect("show me satellite imagery of Seattle", reg)
	want := []string{"sentinel-2-l2a", "landsat-c2-l2"}
	assertEqual(t, got, want)
}

func Test_Select_NilGatewayUsesKeyword(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t)
	a := New(nil, reg)
	got := a.Select(context.Background(), "elevation data for Colorado")
	want := []string{"cop-dem-glo-30", "nasadem"}
	assertEqual(t, got, want)
}

func assertEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
