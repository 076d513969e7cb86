package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/geostac/internal/geo"
)

var (
	yearOnlyRe  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	monthNames  = []string{"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december"}
	explicitDateRe = regexp.MustCompile(`\b(19|20)\d{2}-\d{2}-\d{2}\b`)
	nearDateRe     = regexp.MustCompile(`near\s+((19|20)\d{2}-\d{2}-\d{2})`)
	quarterRe      = regexp.MustCompile(`\bq([1-4])\b`)
)

var seasonMonths = map[string][2]int{
	"winter": {12, 2},
	"spring": {3, 5},
	"summer": {6, 8},
	"fall":   {9, 11},
	"autumn": {9, 11},
}

// ruleBasedSingle applies the deterministic conversions the LLM prompt also
// encodes, used as a fallback on timeout/malformed output and wherever a
// deterministic, round-trippable result is required.
func (a *Agent) ruleBasedSingle(query string) SingleResult {
	q := strings.ToLower(query)
	now := a.now()

	if strings.Contains(q, "recent") {
		start := now.AddDate(0, 0, -30)
		return SingleResult{
			Range:       isoRange(start, now),
			Explanation: "last 30 days relative to today",
		}
	}

	if m := nearDateRe.FindStringSubmatch(q); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			return SingleResult{
				Range:       isoRange(d.AddDate(0, 0, -9), d.AddDate(0, 0, 9)),
				Explanation: fmt.Sprintf("9 days either side of %s", m[1]),
			}
		}
	}

	if m := explicitDateRe.FindString(q); m != "" {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			return SingleResult{
				Range:       isoRange(d, d),
				Explanation: "explicit date: " + m,
			}
		}
	}

	year := yearOnlyRe.FindString(q)
	for _, mn := range monthNames {
		if strings.Contains(q, mn) {
			y := year
			if y == "" {
				y = strconv.Itoa(now.Year())
			}
			yi, _ := strconv.Atoi(y)
			mi := monthIndex(mn)
			start := time.Date(yi, time.Month(mi), 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 1, -1)
			return SingleResult{
				Range:       isoRange(start, end),
				Explanation: fmt.Sprintf("%s %d", capitalize(mn), yi),
			}
		}
	}

	if m := quarterRe.FindStringSubmatch(q); m != nil {
		qn, _ := strconv.Atoi(m[1])
		y := year
		if y == "" {
			y = strconv.Itoa(now.Year())
		}
		yi, _ := strconv.Atoi(y)
		startMonth := (qn-1)*3 + 1
		start := time.Date(yi, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, -1)
		return SingleResult{
			Range:       isoRange(start, end),
			Explanation: fmt.Sprintf("Q%d %d", qn, yi),
		}
	}

	for season, months := range seasonMonths {
		if regexp.MustCompile(`\b` + season + `\b`).MatchString(q) {
			y := year
			if y == "" {
				y = strconv.Itoa(now.Year())
			}
			yi, _ := strconv.Atoi(y)
			startMonth, endMonth := months[0], months[1]
			startYear := yi
			endYear := yi
			if startMonth > endMonth {
				// winter spans year boundary: Dec(startYear) - Feb(startYear+1).
				endYear = yi + 1
			}
			start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
			endStart := time.Date(endYear, time.Month(endMonth), 1, 0, 0, 0, 0, time.UTC)
			end := endStart.AddDate(0, 1, -1)
			return SingleResult{
				Range:       isoRange(start, end),
				Explanation: fmt.Sprintf("%s %d", season, yi),
			}
		}
	}

	if year != "" {
		yi, _ := strconv.Atoi(year)
		start := time.Date(yi, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(yi, 12, 31, 0, 0, 0, 0, time.UTC)
		return SingleResult{Range: isoRange(start, end), Explanation: "full year " + year}
	}

	return SingleResult{Explanation: "no temporal expression found"}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func monthIndex(name string) int {
	for i, m := range monthNames {
		if m == name {
			return i + 1
		}
	}
	return 1
}

func isoRange(start, end time.Time) geo.DatetimeRange {
	return geo.DatetimeRange{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
}
