package pricing

import "time"

// ViewState is the month a calendar view renders. Month is 0-indexed.
type ViewState struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// CurrentView returns the view of the month containing now, in now's location.
func CurrentView(now time.Time) ViewState {
	return ViewState{Year: now.Year(), Month: int(now.Month()) - 1}
}

// Next returns the following month, rolling December into January.
func (v ViewState) Next() ViewState {
	v.Month++
	if v.Month > 11 {
		v.Month = 0
		v.Year++
	}
	return v
}

// Prev returns the preceding month, rolling January into December.
func (v ViewState) Prev() ViewState {
	v.Month--
	if v.Month < 0 {
		v.Month = 11
		v.Year--
	}
	return v
}

// Valid reports whether the month index is in range.
func (v ViewState) Valid() bool {
	return v.Month >= 0 && v.Month <= 11
}
