package compare

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extracted invoice dates arrive in whatever format the source document
// used. Parsing tries the known layouts in order, then falls back to a
// day-month-year pattern with a named month.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"02-January-2006",
	"Jan 02, 2006",
	"January 02, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

var namedMonthPattern = regexp.MustCompile(`^(\d{1,2})[-/]([A-Za-z]{3,9})[-/](\d{4})$`)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate parses a date string of unknown format into a calendar date.
// The time-of-day component, if any, is discarded. Returns false when the
// string is empty, a null placeholder, or unparseable.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := namedMonthPattern.FindStringSubmatch(s); m != nil {
		if month, ok := monthsByPrefix[strings.ToLower(m[2])[:3]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			if day >= 1 && day <= 31 {
				return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
			}
		}
	}

	return time.Time{}, false
}

// NormalizeDate renders a date string in ISO form for comparison and
// storage. Unparseable input is returned as-is so the raw value still
// surfaces in diffs.
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}

// SameCalendarDay compares two date strings as calendar dates regardless
// of their input format. Returns false when either side is unparseable
// and the raw strings differ.
func SameCalendarDay(a, b string) bool {
	ta, oka := ParseDate(a)
	tb, okb := ParseDate(b)
	if oka && okb {
		return ta.Equal(tb)
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
