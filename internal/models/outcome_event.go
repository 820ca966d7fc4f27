package models

// OutcomeEvent is the payload published to the outcomes topic after a flush.
// The feed is best effort; the result store stays the source of truth.
type OutcomeEvent struct {
	RunID   string  `json:"run_id"`
	Outcome Outcome `json:"outcome"`
}
