package caldav

import (
	"encoding/xml"
	"fmt"
)

// Request bodies follow RFC 4791. The PROPFIND is a shallow metadata probe
// used to verify credentials and collection access before the actual query.
const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:displayname/>
    <C:calendar-description/>
  </D:prop>
</D:propfind>`

// calendarQueryBody builds a calendar-query REPORT filtered to VEVENTs
// intersecting [start, end], both in compact UTC form.
func calendarQueryBody(start, end string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`, start, end)
}

// multistatus mirrors the DAV:multistatus response envelope. Struct tags
// carry only local names so that responses decode regardless of the prefix
// the server chose (D:, d:, default namespace, ...).
type multistatus struct {
	XMLName   xml.Name     `xml:"multistatus"`
	Responses []msResponse `xml:"response"`
}

type msResponse struct {
	Href      string       `xml:"href"`
	Propstats []msPropstat `xml:"propstat"`
}

type msPropstat struct {
	Status string `xml:"status"`
	Prop   msProp `xml:"prop"`
}

type msProp struct {
	ETag         string `xml:"getetag"`
	CalendarData string `xml:"calendar-data"`
}

// decodeMultistatus parses a REPORT response body.
func decodeMultistatus(body []byte) (*multistatus, error) {
	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &ms, nil
}
