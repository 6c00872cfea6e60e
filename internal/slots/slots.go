// Package slots computes bookable hourly slots for a day by subtracting
// busy intervals from a fixed working-hours grid. It is a pure function of
// its inputs and performs no I/O.
package slots

import (
	"fmt"
	"time"

	"bookcal/internal/dates"
	"bookcal/internal/model"
)

// Window is the daily working-hours grid. Hours are in the day's UTC
// frame; slots are offered for each SlotHours-sized step in
// [StartHour, EndHour).
type Window struct {
	StartHour int
	EndHour   int
	SlotHours int
}

// Default returns the standard 09:00-18:00 window with one-hour slots.
func Default() Window {
	return Window{StartHour: 9, EndHour: 18, SlotHours: 1}
}

// Generate returns the available slots for the given day, in ascending
// hour order. A slot is available iff it overlaps no busy interval, with
// half-open semantics: a busy interval ending exactly when a slot starts
// (or starting exactly when it ends) does not block it. Unavailable hours
// are omitted, never padded.
func Generate(day time.Time, busy []model.Interval, w Window) []model.Slot {
	dayStart := dates.StartOfDay(day)

	out := make([]model.Slot, 0, w.EndHour-w.StartHour)

	for hour := w.StartHour; hour < w.EndHour; hour += w.SlotHours {
		slotStart := dayStart.Add(time.Duration(hour) * time.Hour)
		slotEnd := slotStart.Add(time.Duration(w.SlotHours) * time.Hour)

		if blocked(slotStart, slotEnd, busy) {
			continue
		}

		out = append(out, model.Slot{
			Start: slotStart,
			Label: fmt.Sprintf("%02d:00", hour),
		})
	}

	return out
}

func blocked(slotStart, slotEnd time.Time, busy []model.Interval) bool {
	for _, iv := range busy {
		if dates.Overlaps(slotStart, slotEnd, iv.Start, iv.End) {
			return true
		}
	}
	return false
}
