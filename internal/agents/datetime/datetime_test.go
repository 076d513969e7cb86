package datetime

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func Test_RuleBasedSingle_Recent(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	a := NewWithClock(nil, fixedClock(now))
	r := a.ruleBasedSingle("show me recent imagery of Seattle")
	if r.Range.Start != "2026-02-13" || r.Range.End != "2026-03-15" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_YearOnly(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("wildfire activity in 2023")
	if r.Range.Start != "2023-01-01" || r.Range.End != "2023-12-31" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_MonthAndYear(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("imagery from October 2024")
	if r.Range.Start != "2024-10-01" || r.Range.End != "2024-10-31" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_Quarter(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("Q1 2025 snowpack")
	if r.Range.Start != "2025-01-01" || r.Range.End != "2025-03-31" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_Season(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("summer 2022 drought conditions")
	if r.Range.Start != "2022-06-01" || r.Range.End != "2022-08-31" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_WinterSpansYearBoundary(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("winter 2023 snowfall")
	if r.Range.Start != "2023-12-01" || r.Range.End != "2024-02-29" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_ExplicitDate(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("imagery from 2024-07-04")
	if r.Range.Start != "2024-07-04" || r.Range.End != "2024-07-04" {
		t.Errorf("Range = %+v", r.Range)
	}
}

func Test_RuleBasedSingle_NoExpressionIsZero(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Now()))
	r := a.ruleBasedSingle("show me Seattle")
	if !r.Range.IsZero() {
		t.Errorf("Range = %+v, want zero", r.Range)
	}
}

func Test_ParseISORange_RoundTrips(t *testing.T) {
	t.Parallel()
	rng, ok := parseISORange("2024-10-01/2024-10-31")
	if !ok {
		t.Fatalf("parseISORange failed to parse a valid range")
	}
	if rng.STACInterval() != "2024-10-01/2024-10-31" {
		t.Errorf("STACInterval = %q", rng.STACInterval())
	}
}

func Test_ParseISORange_RejectsReversedRange(t *testing.T) {
	t.Parallel()
	_, ok := parseISORange("2024-10-31/2024-10-01")
	if ok {
		t.Errorf("expected reversed range to be rejected")
	}
}

func Test_ComparisonFallback_NeedsClarification(t *testing.T) {
	t.Parallel()
	a := NewWithClock(nil, fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	r := a.TranslateComparison(context.Background(), "compare before and after")
	if !r.NeedsClarification {
		t.Errorf("expected NeedsClarification = true for ambiguous comparison")
	}
}
