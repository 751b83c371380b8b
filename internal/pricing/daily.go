package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrPlanInverted is returned when a daily plan ends before it starts.
var ErrPlanInverted = errors.New("daily plan ends before it starts")

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return Clock{}, fmt.Errorf("parsing time of day %q: want HH:MM or HH:MM:SS", s)
}

// String formats the clock as HH:MM:SS.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// DailyPlan describes a recurring daily price range: every calendar day from
// StartDate to EndDate inclusive, from StartTime to EndTime, at Price cents.
type DailyPlan struct {
	CourseID  string
	StartDate Date
	EndDate   Date
	StartTime Clock
	EndTime   Clock
	Price     int64
}

// Validate checks the plan spans at least one day and is not negatively
// priced.
func (p DailyPlan) Validate() error {
	if p.Price < 0 {
		return fmt.Errorf("%w: %d cents", ErrNegativePrice, p.Price)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: %s > %s", ErrPlanInverted, p.StartDate, p.EndDate)
	}
	return nil
}

// ExpandDaily returns the ranges a daily plan produces, one per day, in
// order. When EndTime is not after StartTime each range ends the next day.
// The returned ranges have no ids.
func ExpandDaily(p DailyPlan) ([]PriceRange, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dtstart := time.Date(p.StartDate.Year, p.StartDate.Month, p.StartDate.Day,
		p.StartTime.Hour, p.StartTime.Minute, p.StartTime.Second, 0, time.UTC)
	until := time.Date(p.EndDate.Year, p.EndDate.Month, p.EndDate.Day,
		23, 59, 59, 0, time.UTC)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: dtstart,
		Until:   until,
	})
	if err != nil {
		return nil, fmt.Errorf("building daily rule: %w", err)
	}

	overnight := p.EndTime.seconds() <= p.StartTime.seconds()

	occurrences := rule.All()
	ranges := make([]PriceRange, 0, len(occurrences))
	for _, start := range occurrences {
		start = start.UTC()
		end := time.Date(start.Year(), start.Month(), start.Day(),
			p.EndTime.Hour, p.EndTime.Minute, p.EndTime.Second, 0, time.UTC)
		if overnight {
			end = end.AddDate(0, 0, 1)
		}
		ranges = append(ranges, PriceRange{
			Price:     p.Price,
			StartDate: NewTimestamp(start),
			EndDate:   NewTimestamp(end),
			CourseID:  p.CourseID,
		})
	}
	return ranges, nil
}
