// Package export renders course prices into calendar and spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/golfclapp/backoffice/internal/pricing"
)

const productID = "-//GolfClapp//BackOffice Prices//EN"

// ICSContentType is the media type of WriteICS output.
const ICSContentType = "text/calendar; charset=utf-8"

// WriteICS writes an iCalendar feed with one event per price range of the
// course. Ranges with an unreadable start or end are skipped; the number of
// events written is returned.
func WriteICS(w io.Writer, snap pricing.CourseSnapshot, stamp time.Time) (int, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(snap.Course.Name + " prices")

	ranges := append([]pricing.PriceRange(nil), snap.PriceRanges...)
	pricing.SortByStart(ranges)

	n := 0
	for _, r := range ranges {
		if !r.StartDate.Valid() || !r.EndDate.Valid() {
			continue
		}
		event := cal.AddEvent(r.ID + "@" + snap.Course.ID)
		event.SetDtStampTime(stamp.UTC())
		event.SetStartAt(r.StartDate.UTC())
		event.SetEndAt(r.EndDate.UTC())
		event.SetSummary(fmt.Sprintf("%s %s", snap.Course.Name, pricing.FormatPrice(r.Price)))
		event.SetDescription(fmt.Sprintf("Price range %s: %s", r.ID, pricing.FormatPrice(r.Price)))
		event.SetProperty(ical.ComponentProperty("COLOR"), pricing.ColorForPrice(r.Price).Hex())
		n++
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return n, fmt.Errorf("writing calendar: %w", err)
	}
	return n, nil
}
