package attendance

import (
	"time"

	"checkin/internal/roster"
)

// Outcome is the operator-facing result of one scan.
type Outcome string

const (
	Admitted       Outcome = "admitted"
	AlreadyEntered Outcome = "already_entered"
	NotFound       Outcome = "not_found"
	Mismatch       Outcome = "mismatch"
	EmptyInput     Outcome = "empty_input"
	Ignored        Outcome = "ignored"
)

// Event is one processed scan as stored in the audit log.
type Event struct {
	ID         string    `json:"id"`
	StationID  string    `json:"station_id"`
	AttendeeID string    `json:"attendee_id,omitempty"`
	Payload    string    `json:"payload"`
	Outcome    Outcome   `json:"outcome"`
	Strategy   string    `json:"strategy,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScanResult is what a station shows after a scan.
type ScanResult struct {
	Outcome  Outcome        `json:"outcome"`
	Message  string         `json:"message"`
	Strategy string         `json:"strategy,omitempty"`
	Record   *roster.Record `json:"record,omitempty"`
	EventID  string         `json:"event_id,omitempty"`
	// RetryIn is set for Ignored results.
	RetryIn time.Duration `json:"retry_in,omitempty"`
}
