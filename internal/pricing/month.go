package pricing

import "time"

// Event is a price range drawn inside a calendar day.
type Event struct {
	Range PriceRange `json:"range"`
	Label string     `json:"label"`
	Color string     `json:"color"`
}

// CalendarDay is a rendered grid cell. Blank cells have Day == 0.
type CalendarDay struct {
	Day    int     `json:"day"`
	Events []Event `json:"events,omitempty"`
}

// SummaryItem is one line of a summary list.
type SummaryItem struct {
	Range  PriceRange `json:"range"`
	Label  string     `json:"label"`
	Period string     `json:"period"`
	Color  string     `json:"color"`
}

// MonthView is everything needed to draw one month of a course.
type MonthView struct {
	Title   string        `json:"title"`
	View    ViewState     `json:"view"`
	Course  Course        `json:"course"`
	Days    []CalendarDay `json:"days"`
	Summary []SummaryItem `json:"summary"`
}

// DayDetail lists the ranges covering one day.
type DayDetail struct {
	Title string        `json:"title"`
	Date  string        `json:"date"`
	Items []SummaryItem `json:"items"`
}

// BuildMonthView renders the grid and the monthly summary for a snapshot.
// Labels are formatted in loc.
func BuildMonthView(snap CourseSnapshot, view ViewState, loc *time.Location) MonthView {
	if loc == nil {
		loc = time.UTC
	}

	grid := BuildCalendarGrid(view.Year, view.Month)
	days := make([]CalendarDay, 0, grid.Len())
	for cell := range grid.Cells() {
		if cell.Blank() {
			days = append(days, CalendarDay{})
			continue
		}
		day := CalendarDay{Day: cell.Day}
		for _, r := range RangesOverlappingDay(snap.PriceRanges, view.Year, view.Month, cell.Day) {
			day.Events = append(day.Events, Event{
				Range: r,
				Label: FormatPrice(r.Price),
				Color: ColorForPrice(r.Price).String(),
			})
		}
		days = append(days, day)
	}

	month := RangesOverlappingMonth(snap.PriceRanges, view.Year, view.Month)
	summary := make([]SummaryItem, 0, len(month))
	for _, r := range month {
		summary = append(summary, SummaryItem{
			Range:  r,
			Label:  FormatPrice(r.Price),
			Period: periodLabel(r, loc),
			Color:  ColorForPrice(r.Price).String(),
		})
	}

	return MonthView{
		Title:   MonthTitle(view.Year, view.Month),
		View:    view,
		Course:  snap.Course,
		Days:    days,
		Summary: summary,
	}
}

// BuildDayDetail lists the ranges covering a day, sorted by start.
func BuildDayDetail(snap CourseSnapshot, year, month, day int, loc *time.Location) DayDetail {
	if loc == nil {
		loc = time.UTC
	}

	ranges := RangesOverlappingDay(snap.PriceRanges, year, month, day)
	SortByStart(ranges)

	items := make([]SummaryItem, 0, len(ranges))
	for _, r := range ranges {
		items = append(items, SummaryItem{
			Range:  r,
			Label:  FormatPrice(r.Price),
			Period: clockPeriodLabel(r, loc),
			Color:  ColorForPrice(r.Price).String(),
		})
	}

	return DayDetail{
		Title: LongDate(year, month, day),
		Date:  dayKey(year, month, day),
		Items: items,
	}
}
