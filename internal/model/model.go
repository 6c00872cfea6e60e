package model

import "time"

// Interval is a busy period reported by the remote calendar. Both bounds
// are in UTC. Intervals are treated as half-open for overlap purposes.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is one candidate hourly appointment slot. Start is the slot's
// beginning in UTC; Label is the "HH:00" rendering of the start hour.
type Slot struct {
	Start time.Time
	Label string
}

// Booking is a visitor's appointment request as submitted by the booking
// form.
type Booking struct {
	// Date is the appointment day in "2006-01-02" form.
	Date string
	// Time is the chosen slot label, e.g. "14:00".
	Time string

	Name    string
	Email   string
	Message string

	// Video requests a video call instead of an in-person meeting.
	Video bool
}
