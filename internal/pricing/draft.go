package pricing

import (
	"fmt"
	"time"
)

// RangeDraft holds the editable fields of a price range as a form presents
// them: dates as YYYY-MM-DD, times as HH:MM, price in euros. Dates and times
// are UTC.
type RangeDraft struct {
	ID        string `json:"id,omitempty"`
	Price     string `json:"price"`
	StartDate string `json:"startDate"`
	StartTime string `json:"startTime"`
	EndDate   string `json:"endDate"`
	EndTime   string `json:"endTime"`
}

// NewRangeDraft returns the defaults for a new range: today 00:00 until
// tomorrow 23:59 at price 0.
func NewRangeDraft(now time.Time) RangeDraft {
	today := now.UTC()
	tomorrow := today.AddDate(0, 0, 1)
	return RangeDraft{
		Price:     "0.00",
		StartDate: today.Format(DateLayout),
		StartTime: "00:00",
		EndDate:   tomorrow.Format(DateLayout),
		EndTime:   "23:59",
	}
}

// DraftFromRange fills a draft from an existing range.
func DraftFromRange(r PriceRange) RangeDraft {
	start := r.StartDate.UTC()
	end := r.EndDate.UTC()
	return RangeDraft{
		ID:        r.ID,
		Price:     PriceInput(r.Price),
		StartDate: start.Format(DateLayout),
		StartTime: start.Format("15:04"),
		EndDate:   end.Format(DateLayout),
		EndTime:   end.Format("15:04"),
	}
}

// PriceRange converts the draft into a range of the given course.
func (d RangeDraft) PriceRange(courseID string) (PriceRange, error) {
	price, err := ParsePrice(d.Price)
	if err != nil {
		return PriceRange{}, err
	}
	start, err := BuildTimestamp(d.StartDate, d.StartTime)
	if err != nil {
		return PriceRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := BuildTimestamp(d.EndDate, d.EndTime)
	if err != nil {
		return PriceRange{}, fmt.Errorf("end: %w", err)
	}
	return PriceRange{
		ID:        d.ID,
		Price:     price,
		StartDate: start,
		EndDate:   end,
		CourseID:  courseID,
	}, nil
}

// BuildTimestamp combines a YYYY-MM-DD date and an HH:MM clock into a UTC
// timestamp, i.e. "<date>T<clock>:00.000Z".
func BuildTimestamp(date, clock string) (Timestamp, error) {
	t, err := time.Parse(DateLayout+"T15:04", date+"T"+clock)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parsing %sT%s: %w", date, clock, err)
	}
	return NewTimestamp(t), nil
}
