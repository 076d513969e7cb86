package geo

import "testing"

func Test_Validate_AcceptsOrdinaryBox(t *testing.T) {
	t.Parallel()
	b := BBox{-122.5, 47.4, -122.2, 47.7}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func Test_Validate_AcceptsDatelineCrossing(t *testing.T) {
	t.Parallel()
	// Fiji-style box: west of the antimeridian to east of it.
	b := BBox{177, -19, -178, -16}
	if !b.CrossesDateline() {
		t.Fatalf("CrossesDateline() = false, want true for %v", b)
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for dateline-crossing box", err)
	}
}

func Test_Validate_RejectsBadBoxes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		b    BBox
	}{
		{"west equals east", BBox{-122, 47, -122, 48}},
		{"west > east without crossing", BBox{-100, 47, -122, 48}},
		{"south >= north", BBox{-122.5, 47.7, -122.2, 47.4}},
		{"longitude out of range", BBox{-190, 47, -122, 48}},
		{"latitude out of range", BBox{-122.5, -95, -122.2, 47}},
	}
	for _, tc := range cases {
		if err := tc.b.Validate(); err == nil {
			t.Errorf("%s: Validate(%v) = nil, want error", tc.name, tc.b)
		}
	}
}

func Test_Center_OrdinaryBox(t *testing.T) {
	t.Parallel()
	b := BBox{-124, 46, -122, 48}
	c := b.Center()
	if c[0] != -123 || c[1] != 47 {
		t.Fatalf("Center() = %v, want [-123 47]", c)
	}
}

func Test_Center_DatelineCrossing(t *testing.T) {
	t.Parallel()
	// 176E to -176W: midpoint is exactly on the antimeridian side, 180.
	b := BBox{176, -10, -176, 10}
	c := b.Center()
	if c[0] < 179.9 && c[0] > -179.9 {
		t.Fatalf("Center() longitude = %v, want near the antimeridian", c[0])
	}
	if c[1] != 0 {
		t.Fatalf("Center() latitude = %v, want 0", c[1])
	}
}

func Test_Bound_RoundTrip(t *testing.T) {
	t.Parallel()
	b := BBox{-122.5, 47.4, -122.2, 47.7}
	if got := FromBound(b.Bound()); got != b {
		t.Fatalf("FromBound(Bound()) = %v, want %v", got, b)
	}
}

func Test_DatetimeRange_STACInterval(t *testing.T) {
	t.Parallel()
	closed := DatetimeRange{Start: "2024-10-01", End: "2024-10-31"}
	if got := closed.STACInterval(); got != "2024-10-01/2024-10-31" {
		t.Fatalf("STACInterval() = %q, want 2024-10-01/2024-10-31", got)
	}
	open := DatetimeRange{Start: "2024-10-01"}
	if got := open.STACInterval(); got != "2024-10-01/.." {
		t.Fatalf("STACInterval() = %q, want open-ended 2024-10-01/..", got)
	}
	var zero DatetimeRange
	if !zero.IsZero() || zero.STACInterval() != "" {
		t.Fatalf("zero range: IsZero=%v interval=%q, want true and empty", zero.IsZero(), zero.STACInterval())
	}
}
