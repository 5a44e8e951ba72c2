// Package roster holds the attendee records of one event session.
package roster

import (
	"strings"
	"time"
)

// Status is the entry state of an attendee.
type Status string

const (
	NotEntered Status = "Not Entered"
	Entered    Status = "Entered"
)

// ParseStatus maps remote and file status cells onto a Status. Anything that
// is not recognizably "entered" counts as not entered.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entered", "yes", "true", "1", "present":
		return Entered
	default:
		return NotEntered
	}
}

// Record is one attendee.
//
// SourceID is the id as the source row knows it, before any duplicate
// suffix was added; writes back to the source address the row with it.
type Record struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"-"`
	Name      string     `json:"name"`
	Group     string     `json:"group"`
	Status    Status     `json:"status"`
	EnteredAt *time.Time `json:"entered_at,omitempty"`
}

// RemoteID returns the id to use when writing the record back to its source.
func (r Record) RemoteID() string {
	if r.SourceID != "" {
		return r.SourceID
	}
	return r.ID
}

// HasEntered reports whether the attendee has been admitted.
func (r Record) HasEntered() bool {
	return r.Status == Entered
}

func (r Record) clone() Record {
	if r.EnteredAt != nil {
		t := *r.EnteredAt
		r.EnteredAt = &t
	}
	return r
}

// Warning is a non-fatal problem found while loading a roster.
type Warning struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Rows    []int  `json:"rows,omitempty"`
	Message string `json:"message"`
}

const (
	WarnDuplicateID = "duplicate_id"
	WarnMissingName = "missing_name"
	WarnEmptyRow    = "empty_row"
)
