package models

import "time"

// OutcomeStatus is the terminal state of one extraction attempt.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome is the recorded result of attempting one identifier. Exactly one
// outcome exists per identifier in steady state; the result store dedupes by
// ID on append.
type Outcome struct {
	ID         string        `json:"id"`
	Status     OutcomeStatus `json:"status"`
	Payload    *PageContent  `json:"payload"`
	Error      string        `json:"error,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// FailedOutcome builds a failed outcome for an identifier with a reason.
func FailedOutcome(id, reason string) Outcome {
	return Outcome{ID: id, Status: StatusFailed, Error: reason}
}
