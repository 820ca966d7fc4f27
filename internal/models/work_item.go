package models

// WorkItem is one entry of the work ledger: an opaque identifier (a page URL)
// and its 0-based position in the ledger. Immutable after load.
type WorkItem struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}
