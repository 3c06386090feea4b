package coerce

// date.go handles the messy reality of spreadsheet dates: a dozen layouts,
// 2-digit years, and numeric short dates where day-first and month-first
// readings are both calendar-valid. Ambiguity is resolved against a caller
// supplied reference date rather than a fixed locale.

import (
	"strings"
	"time"
)

// TwoDigitYearPivot controls 2-digit year interpretation: a parsed year more
// than this many years past the reference year is pushed back a century.
const TwoDigitYearPivot = 20

// Unambiguous layouts tried before the numeric short-date path.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Date parses a calendar date. Numeric short dates (1/2/2024, 01-02-24,
// 1.2.2024) are disambiguated positionally when possible: a component above
// 12 fixes the day slot. When both DD/MM and MM/DD readings are valid, the
// reading closest to ref wins, preferring on-or-before ref. The result is
// truncated to midnight UTC.
func Date(raw string, ref time.Time) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return midnight(t), true, nil
		}
	}

	if t, ok := parseNumericShortDate(raw, ref); ok {
		return midnight(t), true, nil
	}

	return time.Time{}, false, &ParseError{Kind: "date", Raw: raw}
}

// parseNumericShortDate handles a/b/year triplets with /, -, or . as the
// separator.
func parseNumericShortDate(raw string, ref time.Time) (time.Time, bool) {
	sep := ""
	for _, s := range []string{"/", "-", "."} {
		if strings.Count(raw, s) == 2 {
			sep = s
			break
		}
	}
	if sep == "" {
		return time.Time{}, false
	}

	parts := strings.Split(raw, sep)
	a, okA := atoi(parts[0])
	b, okB := atoi(parts[1])
	year, okY := atoi(parts[2])
	if !okA || !okB || !okY {
		return time.Time{}, false
	}

	if len(parts[2]) <= 2 {
		year = pivotYear(year, ref)
	}

	dayFirst := makeDate(year, b, a)   // a=day, b=month
	monthFirst := makeDate(year, a, b) // a=month, b=day

	switch {
	case dayFirst == nil && monthFirst == nil:
		return time.Time{}, false
	case dayFirst == nil:
		return *monthFirst, true
	case monthFirst == nil:
		return *dayFirst, true
	case dayFirst.Equal(*monthFirst):
		return *dayFirst, true
	}
	return pickNearest(*dayFirst, *monthFirst, ref), true
}

// pickNearest chooses between two valid readings: candidates on or before
// ref are preferred, and among those the one closest to ref wins. When both
// readings are after ref, the earlier (closer) one wins.
func pickNearest(x, y, ref time.Time) time.Time {
	ref = midnight(ref)
	xBefore := !x.After(ref)
	yBefore := !y.After(ref)

	switch {
	case xBefore && !yBefore:
		return x
	case yBefore && !xBefore:
		return y
	case xBefore && yBefore:
		if x.After(y) {
			return x
		}
		return y
	default:
		if x.Before(y) {
			return x
		}
		return y
	}
}

// makeDate returns nil when the triplet is not a real calendar date
// (time.Date would silently normalize 31/04 into 1/05).
func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

func pivotYear(year int, ref time.Time) int {
	year += 2000
	if year > ref.Year()+TwoDigitYearPivot {
		year -= 100
	}
	return year
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
