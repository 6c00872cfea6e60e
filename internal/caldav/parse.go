package caldav

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"bookcal/internal/dates"
	appLog "bookcal/internal/log"
	"bookcal/internal/model"
)

// parseCalendarData extracts busy intervals from one calendar-data ICS
// payload. Events missing DTSTART or DTEND, or carrying timestamps that do
// not parse, are skipped; the rest of the payload is still used.
//
// loc is the timezone used for timestamps without an explicit UTC marker
// (the calendar server's civil time).
func parseCalendarData(data string, loc *time.Location) ([]model.Interval, error) {
	if strings.TrimSpace(data) == "" {
		return nil, errors.New("empty calendar-data payload")
	}

	// XML parsers normalize line endings to bare LF inside character data,
	// so the payload must be folded back to the CRLF form iCalendar wants.
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\n", "\r\n")

	cal, err := ical.ParseCalendar(strings.NewReader(data))
	if err != nil {
		return nil, err
	}

	intervals := make([]model.Interval, 0)

	for _, ve := range cal.Events() {
		iv, perr := eventInterval(ve, loc)
		if perr != nil {
			// Malformed record: drop it, keep the batch.
			appLog.Debug("caldav: skipping malformed event", "reason", perr)
			continue
		}
		intervals = append(intervals, iv)
	}

	return intervals, nil
}

// eventInterval reads DTSTART/DTEND off a VEVENT and normalizes both to
// UTC. A TZID parameter, when present and loadable, takes precedence over
// the server-level zone for that timestamp.
func eventInterval(ve *ical.VEvent, loc *time.Location) (model.Interval, error) {
	start, err := propTime(ve, ical.ComponentPropertyDtStart, loc)
	if err != nil {
		return model.Interval{}, err
	}
	end, err := propTime(ve, ical.ComponentPropertyDtEnd, loc)
	if err != nil {
		return model.Interval{}, err
	}
	return model.Interval{Start: start, End: end}, nil
}

func propTime(ve *ical.VEvent, name ical.ComponentProperty, loc *time.Location) (time.Time, error) {
	p := ve.GetProperty(name)
	if p == nil || p.Value == "" {
		return time.Time{}, errors.New("missing " + string(name))
	}

	if params := p.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			if tzLoc, lerr := time.LoadLocation(tzs[0]); lerr == nil {
				loc = tzLoc
			}
		}
	}

	return dates.ParseCompact(p.Value, loc)
}
