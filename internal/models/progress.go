package models

// ProgressSnapshot is the read-only progress view computed by joining the
// checkpoint and the result store against the ledger size.
type ProgressSnapshot struct {
	TotalItems             int     `json:"total_items"`
	ProcessedCount         int     `json:"processed_count"`
	SucceededCount         int     `json:"succeeded_count"`
	FailedCount            int     `json:"failed_count"`
	RemainingCount         int     `json:"remaining_count"`
	PercentComplete        float64 `json:"percent_complete"`
	EstimatedRemainingRuns int     `json:"estimated_remaining_runs"`
}
