// Package caldav implements the minimal slice of the CalDAV protocol the
// booking widget needs: a PROPFIND access check and a time-range filtered
// calendar-query REPORT, both against a single pre-configured collection.
package caldav

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"bookcal/internal/dates"
	appLog "bookcal/internal/log"
	"bookcal/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client issues queries against one remote calendar collection. It holds
// no state between calls; two concurrent fetches simply perform redundant
// independent queries.
type Client struct {
	url      string
	username string
	password string
	client   *http.Client

	// loc is the civil timezone of the calendar server, used to interpret
	// event timestamps that carry no UTC marker.
	loc *time.Location
}

// NewClient creates a Client for the given collection URL.
//
// Returns ErrNoCredentials when either credential is empty. If loc is nil,
// non-UTC timestamps are interpreted as UTC, which is only correct for
// servers that actually emit UTC; callers should pass the server's zone.
func NewClient(url, username, password string, loc *time.Location) (*Client, error) {
	if url == "" {
		return nil, errors.New("caldav: calendar URL is empty")
	}
	if username == "" || password == "" {
		return nil, ErrNoCredentials
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		url:      url,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		loc: loc,
	}, nil
}

// CheckAccess performs the shallow PROPFIND probe. It verifies the
// credentials and the collection path without transferring event data.
func (c *Client) CheckAccess(ctx context.Context) error {
	resp, err := c.do(ctx, "PROPFIND", propfindBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Op: "propfind", Status: resp.StatusCode}
	}
	return nil
}

// BusyIntervals returns every busy interval that intersects the given day,
// sorted by start time. The day's time-of-day component is ignored.
//
// The REPORT window is widened by one day on each side and the results are
// filtered back down to the exact day afterwards; some servers match the
// time-range filter loosely around day boundaries, and the post-filter
// makes the outcome independent of that.
func (c *Client) BusyIntervals(ctx context.Context, day time.Time) ([]model.Interval, error) {
	if err := c.CheckAccess(ctx); err != nil {
		return nil, err
	}

	dayStart, dayEnd := dates.DayBounds(day)
	queryStart := dayStart.Add(-24 * time.Hour)
	queryEnd := dayEnd.Add(24 * time.Hour)

	body := calendarQueryBody(dates.FormatCompact(queryStart), dates.FormatCompact(queryEnd))

	resp, err := c.do(ctx, "REPORT", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: "report", Status: resp.StatusCode}
	}

	ms, err := decodeMultistatus(raw)
	if err != nil {
		return nil, err
	}

	intervals := make([]model.Interval, 0)
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			if ps.Prop.CalendarData == "" {
				continue
			}
			ivs, perr := parseCalendarData(ps.Prop.CalendarData, c.loc)
			if perr != nil {
				// One undecodable payload does not abort the batch.
				appLog.Error("caldav: skipping unreadable calendar-data", perr, "href", r.Href)
				continue
			}
			intervals = append(intervals, ivs...)
		}
	}

	// Keep only intervals that actually touch the requested day.
	filtered := intervals[:0]
	for _, iv := range intervals {
		if dates.Overlaps(iv.Start, iv.End, dayStart, dayEnd) {
			filtered = append(filtered, iv)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Start.Before(filtered[j].Start)
	})

	appLog.Info("caldav: busy intervals fetched",
		"day", dayStart.Format("2006-01-02"),
		"count", len(filtered),
	)
	return filtered, nil
}

func (c *Client) do(ctx context.Context, method, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", "1")
	req.Header.Set("Accept", "*/*")

	return c.client.Do(req)
}
