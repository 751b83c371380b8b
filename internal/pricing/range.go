// Package pricing maps a course's price ranges onto calendar views.
//
// Everything in this package is a pure function of its inputs; no I/O is
// performed and no state is shared between calls.
package pricing

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the date-only layout used for day matching and form inputs.
const DateLayout = "2006-01-02"

// wireLayout is the layout the BackOffice API accepts for timestamps.
const wireLayout = "2006-01-02T15:04:05.000Z"

// parseLayouts are tried in order when decoding API timestamps.
// Timestamps without a zone are read as UTC.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	DateLayout,
}

// Timestamp is a date-time as exchanged with the BackOffice API.
// The literal text received is kept so that day matching can compare the
// date portion exactly as the API wrote it.
type Timestamp struct {
	time.Time
	raw   string
	valid bool
}

// NewTimestamp wraps t, normalized to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), valid: true}
}

// ParseTimestamp parses an API timestamp. A value that matches no known
// layout yields an invalid Timestamp that never overlaps any window; the
// literal text is still kept for date-only comparison.
func ParseTimestamp(s string) Timestamp {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC(), raw: s, valid: true}
		}
	}
	return Timestamp{raw: s}
}

// MustTimestamp parses s and panics if it is not a valid timestamp.
func MustTimestamp(s string) Timestamp {
	ts := ParseTimestamp(s)
	if !ts.valid {
		panic("pricing: invalid timestamp " + s)
	}
	return ts
}

// Valid reports whether the timestamp holds a parsed instant.
func (t Timestamp) Valid() bool {
	return t.valid
}

// DateOnly returns the YYYY-MM-DD portion of the timestamp, i.e. the text
// before the 'T' separator as received from the API.
func (t Timestamp) DateOnly() string {
	if t.raw != "" {
		if i := strings.IndexByte(t.raw, 'T'); i >= 0 {
			return t.raw[:i]
		}
		return t.raw
	}
	return t.Time.UTC().Format(DateLayout)
}

// Wire formats the timestamp the way the BackOffice API expects it. A
// timestamp read from the API is written back exactly as received.
func (t Timestamp) Wire() string {
	if !t.valid || t.raw != "" {
		return t.raw
	}
	return t.Time.UTC().Format(wireLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid && t.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTimestamp(s)
	return nil
}

// PriceRange is a priced interval of time applicable to bookings at a course.
// Price is in cents. Ranges of one course may overlap arbitrarily.
type PriceRange struct {
	ID        string    `json:"id"`
	Price     int64     `json:"price"`
	StartDate Timestamp `json:"startDate"`
	EndDate   Timestamp `json:"endDate"`
	CourseID  string    `json:"courseId"`
}

// Course identifies a golf course.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CourseSnapshot is one course together with its full current set of price
// ranges, as fetched wholesale from the API.
type CourseSnapshot struct {
	Course      Course       `json:"course"`
	PriceRanges []PriceRange `json:"priceRanges"`
}

// IDs returns the ids of the given ranges in order.
func IDs(ranges []PriceRange) []string {
	ids := make([]string, 0, len(ranges))
	for _, r := range ranges {
		ids = append(ids, r.ID)
	}
	return ids
}
