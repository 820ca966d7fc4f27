package models

// RunReport summarizes one execution of the batch runner. EndIndex is the
// last ledger index the run durably accounted for; a cancelled or aborted
// run reports less than the planned slice end. HasMoreWork is the chaining
// signal: true means the ledger is not yet fully accounted for and another
// run should be dispatched.
type RunReport struct {
	StartIndex  int  `json:"start_index"`
	EndIndex    int  `json:"end_index"`
	Attempted   int  `json:"attempted"`
	Succeeded   int  `json:"succeeded"`
	Failed      int  `json:"failed"`
	Skipped     int  `json:"skipped"`
	HasMoreWork bool `json:"has_more_work"`
}
