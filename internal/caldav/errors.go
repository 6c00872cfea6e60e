package caldav

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is returned when the CalDAV username or password is
// missing. This is fatal; there is no anonymous fallback.
var ErrNoCredentials = errors.New("caldav: credentials not configured")

// RemoteError is returned when the calendar server answers either the
// access check or the event query with a non-success status.
type RemoteError struct {
	// Op is the protocol operation that failed: "propfind" or "report".
	Op string
	// Status is the HTTP status code the server returned.
	Status int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("caldav: %s returned status %d", e.Op, e.Status)
}

// ParseError is returned when a query response body cannot be decoded at
// all. Malformed individual event records do not produce a ParseError;
// they are skipped and the fetch continues with the rest.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "caldav: malformed query response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
