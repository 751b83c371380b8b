package pricing

import (
	"iter"
	"time"
)

// DayCell is one cell of a month grid. Blank leading cells have Day == 0.
type DayCell struct {
	Day int `json:"day"`
}

// Blank reports whether the cell pads the grid before day 1.
func (c DayCell) Blank() bool {
	return c.Day == 0
}

// Grid describes a Monday-first month grid.
type Grid struct {
	Year    int
	Month   int // 0-indexed
	Leading int // blank cells before day 1
	Days    int
}

// BuildCalendarGrid lays out the 0-indexed month with weeks starting on Monday.
func BuildCalendarGrid(year, month int) Grid {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	return Grid{
		Year:    year,
		Month:   month,
		Leading: (int(first.Weekday()) + 6) % 7,
		Days:    DaysInMonth(year, month),
	}
}

// Len returns the number of cells, blanks included.
func (g Grid) Len() int {
	return g.Leading + g.Days
}

// Cells yields the leading blanks followed by one cell per day. The sequence
// may be ranged over any number of times.
func (g Grid) Cells() iter.Seq[DayCell] {
	return func(yield func(DayCell) bool) {
		for range g.Leading {
			if !yield(DayCell{}) {
				return
			}
		}
		for day := 1; day <= g.Days; day++ {
			if !yield(DayCell{Day: day}) {
				return
			}
		}
	}
}

// DaysInMonth returns the Gregorian length of the 0-indexed month.
func DaysInMonth(year, month int) int {
	switch time.Month(month + 1) {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
