package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// en-US display layouts.
const (
	monthTitleLayout = "January 2006"
	longDateLayout   = "Monday, January 2, 2006"
	shortDateLayout  = "Jan 2"
	clockLayout      = "03:04 PM"
)

// FormatPrice renders cents as euros, e.g. 1250 -> "€12.50".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("€%.2f", float64(cents)/100)
}

// PriceInput renders cents as a form value, e.g. 1250 -> "12.50".
func PriceInput(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}

// ErrNegativePrice is returned for amounts below zero.
var ErrNegativePrice = errors.New("price must not be negative")

// ParsePrice converts a euro amount such as "12.50" into cents.
func ParsePrice(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parsing price %q: not a finite number", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("parsing price %q: %w", s, ErrNegativePrice)
	}
	return int64(math.Round(f * 100)), nil
}

// MonthTitle returns e.g. "March 2024" for a 0-indexed month.
func MonthTitle(year, month int) string {
	return time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Format(monthTitleLayout)
}

// LongDate returns e.g. "Tuesday, March 5, 2024".
func LongDate(year, month, day int) string {
	return time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC).Format(longDateLayout)
}

// periodLabel renders "Mar 5 09:00 AM - Mar 7 11:00 PM".
func periodLabel(r PriceRange, loc *time.Location) string {
	return dateTimeLabel(r.StartDate, loc) + " - " + dateTimeLabel(r.EndDate, loc)
}

// clockPeriodLabel renders "09:00 AM - 05:00 PM".
func clockPeriodLabel(r PriceRange, loc *time.Location) string {
	return clockLabel(r.StartDate, loc) + " - " + clockLabel(r.EndDate, loc)
}

func dateTimeLabel(t Timestamp, loc *time.Location) string {
	if !t.Valid() {
		return "Invalid Date"
	}
	local := t.In(loc)
	return local.Format(shortDateLayout) + " " + local.Format(clockLayout)
}

func clockLabel(t Timestamp, loc *time.Location) string {
	if !t.Valid() {
		return "Invalid Date"
	}
	return t.In(loc).Format(clockLayout)
}
