package model

import "time"

// Occurrence is a single concrete instance of a calendar event, after
// recurrence expansion and conversion into the display timezone.
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey identifies one occurrence of a recurring event; it is
	// derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the display timezone.
	Start time.Time
	End   time.Time
}

// Key returns an identifier that is unique per occurrence across sources.
func (o Occurrence) Key() string {
	return o.SourceID + "/" + o.UID + "/" + o.InstanceKey
}

// Duration returns End - Start.
func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}
