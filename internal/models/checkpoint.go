package models

import "time"

// Checkpoint records how much of the ledger has been fully accounted for.
// LastIndex is the highest ledger index whose outcome has been durably
// flushed; -1 means none. ProcessedIDs only ever grows, and an identifier is
// added only after its outcome reached the result store.
type Checkpoint struct {
	LastIndex    int       `json:"last_index"`
	ProcessedIDs []string  `json:"processed_urls"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCheckpoint returns the empty checkpoint used before the first run.
func NewCheckpoint() Checkpoint {
	return Checkpoint{LastIndex: -1}
}

// ProcessedSet builds a lookup set over ProcessedIDs.
func (c Checkpoint) ProcessedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ProcessedIDs))
	for _, id := range c.ProcessedIDs {
		set[id] = struct{}{}
	}
	return set
}
