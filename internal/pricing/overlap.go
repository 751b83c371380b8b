package pricing

import (
	"fmt"
	"slices"
	"time"
)

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.String() < o.String()
}

// dayKey builds the YYYY-MM-DD key for a 0-indexed month and 1-indexed day.
func dayKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month+1, day)
}

// RangesOverlappingDay returns the ranges whose date span covers the given
// day. month is 0-indexed, day is 1-indexed.
//
// Only the date portions are compared, so a range ending at 00:30 on a day
// covers that whole day.
func RangesOverlappingDay(ranges []PriceRange, year, month, day int) []PriceRange {
	key := dayKey(year, month, day)
	out := make([]PriceRange, 0)
	for _, r := range ranges {
		if key >= r.StartDate.DateOnly() && key <= r.EndDate.DateOnly() {
			out = append(out, r)
		}
	}
	return out
}

// MonthBounds returns the first and last instant (millisecond precision) of
// a 0-indexed month in UTC.
func MonthBounds(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// RangesOverlappingMonth returns the ranges overlapping the 0-indexed month,
// sorted by start. Ranges are compared on full timestamps.
func RangesOverlappingMonth(ranges []PriceRange, year, month int) []PriceRange {
	start, end := MonthBounds(year, month)
	return overlapping(ranges, start, end)
}

// WindowBounds normalizes a [from, to] date filter to 00:00:00.000 UTC of
// from and 23:59:59.999 UTC of to.
func WindowBounds(from, to Date) (start, end time.Time) {
	start = time.Date(from.Year, from.Month, from.Day, 0, 0, 0, 0, time.UTC)
	end = time.Date(to.Year, to.Month, to.Day, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	return start, end
}

// RangesOverlappingWindow returns the ranges overlapping [from, to], sorted
// by start. Touching a boundary counts as overlapping.
func RangesOverlappingWindow(ranges []PriceRange, from, to Date) []PriceRange {
	start, end := WindowBounds(from, to)
	return overlapping(ranges, start, end)
}

func overlapping(ranges []PriceRange, start, end time.Time) []PriceRange {
	out := make([]PriceRange, 0)
	for _, r := range ranges {
		if overlaps(r, start, end) {
			out = append(out, r)
		}
	}
	SortByStart(out)
	return out
}

// overlaps is the closed-interval test. Unparseable timestamps never overlap.
func overlaps(r PriceRange, start, end time.Time) bool {
	if !r.StartDate.Valid() || !r.EndDate.Valid() {
		return false
	}
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// SortByStart sorts ranges ascending by start, keeping input order for ties.
func SortByStart(ranges []PriceRange) {
	slices.SortStableFunc(ranges, func(a, b PriceRange) int {
		return a.StartDate.Compare(b.StartDate.Time)
	})
}
