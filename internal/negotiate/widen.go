package negotiate

import (
	"fmt"
	"time"

	"github.com/54b3r/geostac/internal/geo"
)

const maxWidenYears = 5

// widen symmetrically expands a datetime range by factor around its
// midpoint, capped at a maxWidenYears-year total span.
func widen(rng geo.DatetimeRange, factor float64) (geo.DatetimeRange, error) {
	start, err := time.Parse("2006-01-02", rng.Start)
	if err != nil {
		return geo.DatetimeRange{}, fmt.Errorf("negotiate: parse start: %w", err)
	}
	end, err := time.Parse("2006-01-02", rng.End)
	if err != nil {
		return geo.DatetimeRange{}, fmt.Errorf("negotiate: parse end: %w", err)
	}

	span := end.Sub(start)
	newSpan := time.Duration(float64(span) * factor)

	maxSpan := time.Duration(maxWidenYears*365) * 24 * time.Hour
	if newSpan > maxSpan {
		newSpan = maxSpan
	}

	mid := start.Add(span / 2)
	newStart := mid.Add(-newSpan / 2)
	newEnd := mid.Add(newSpan / 2)

	return geo.DatetimeRange{
		Start: newStart.Format("2006-01-02"),
		End:   newEnd.Format("2006-01-02"),
	}, nil
}
