// Package dates owns every piece of date arithmetic where calendar data
// crosses the local/UTC boundary. All other packages call these helpers
// instead of doing their own timestamp parsing or interval math.
package dates

import (
	"errors"
	"strings"
	"time"
)

const (
	// layoutCompactUTC is the CalDAV compact form for UTC instants.
	layoutCompactUTC = "20060102T150405Z"
	// layoutCompactLocal is the same form without a zone marker; the value
	// is a civil time in the calendar server's timezone.
	layoutCompactLocal = "20060102T150405"
	// layoutCompactDate is the date-only form used by all-day events.
	layoutCompactDate = "20060102"
)

// ParseCompact parses a compact CalDAV timestamp into a UTC time.Time.
//
//   - A trailing "Z" marks an explicit UTC instant and is parsed directly.
//   - Without the marker the literal clock time is interpreted as civil time
//     in loc and converted to UTC. ParseInLocation picks the UTC offset in
//     effect at that instant, so seasonal offset changes are handled.
//   - A date-only value is midnight in loc.
//
// If loc is nil, time.Local is used.
func ParseCompact(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(layoutCompactUTC, v)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	if strings.Contains(v, "T") {
		t, err := time.ParseInLocation(layoutCompactLocal, v, loc)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	t, err := time.ParseInLocation(layoutCompactDate, v, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatCompact renders t in the compact UTC form ("20060102T150405Z").
// FormatCompact(ParseCompact(s, nil)) == s for any UTC-marked s.
func FormatCompact(t time.Time) string {
	return t.UTC().Format(layoutCompactUTC)
}

// StartOfDay normalizes t to UTC midnight of its calendar day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the half-open UTC day window [midnight, next midnight)
// for the day containing t.
func DayBounds(t time.Time) (start, end time.Time) {
	start = StartOfDay(t)
	return start, start.Add(24 * time.Hour)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending exactly where the other
// starts does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
