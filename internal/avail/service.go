// Package avail glues the calendar fetcher to the slot generator and owns
// the degradation policy for remote failures.
package avail

import (
	"context"
	"errors"
	"time"

	"bookcal/internal/caldav"
	appLog "bookcal/internal/log"
	"bookcal/internal/model"
	"bookcal/internal/slots"
)

// BusyFetcher is the calendar dependency of the service. *caldav.Client
// satisfies it; tests substitute a fake.
type BusyFetcher interface {
	BusyIntervals(ctx context.Context, day time.Time) ([]model.Interval, error)
}

// Service computes available booking slots for a day.
type Service struct {
	fetcher BusyFetcher
	window  slots.Window

	// failOpen degrades a *caldav.RemoteError to an empty busy set rather
	// than propagating it, so the widget keeps offering slots when the
	// calendar server is down. Configuration and parse failures always
	// propagate.
	failOpen bool
}

// New creates a Service. A zero window is replaced with the default
// 09:00-18:00 grid.
func New(fetcher BusyFetcher, window slots.Window, failOpen bool) *Service {
	if window.EndHour <= window.StartHour || window.SlotHours <= 0 {
		window = slots.Default()
	}
	return &Service{
		fetcher:  fetcher,
		window:   window,
		failOpen: failOpen,
	}
}

// Window returns the working-hours grid the service offers slots in.
func (s *Service) Window() slots.Window {
	return s.window
}

// Slots returns the available slots for the given day, ascending. The
// day's time-of-day component is ignored.
func (s *Service) Slots(ctx context.Context, day time.Time) ([]model.Slot, error) {
	started := time.Now()

	busy, err := s.fetcher.BusyIntervals(ctx, day)
	fetchDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		var remoteErr *caldav.RemoteError
		if s.failOpen && errors.As(err, &remoteErr) {
			appLog.Error("avail: remote query failed, continuing with empty busy set", err,
				"day", day.Format("2006-01-02"),
			)
			fetchTotal.WithLabelValues(outcomeFailOpen).Inc()
			busy = nil
		} else {
			fetchTotal.WithLabelValues(outcomeError).Inc()
			return nil, err
		}
	} else {
		fetchTotal.WithLabelValues(outcomeOK).Inc()
	}

	return slots.Generate(day, busy, s.window), nil
}
