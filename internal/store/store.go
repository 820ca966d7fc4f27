package store

import (
	"context"

	"stubborn-archivist/internal/models"
)

// CheckpointStore persists run progress across executions. Implementations
// must make Update an atomic replace: a crash mid-write must never leave a
// partial checkpoint visible to a later Load. At most one writer may be
// active at a time; enforcing that across hosts (e.g. with a lease) is a
// deployment concern.
type CheckpointStore interface {
	// Load returns the current checkpoint, or the empty default
	// (LastIndex -1, no processed IDs) if none has been written yet.
	Load(ctx context.Context) (models.Checkpoint, error)

	// Update durably replaces the checkpoint.
	Update(ctx context.Context, cp models.Checkpoint) error
}

// ResultStore accumulates per-item outcomes. AppendOutcomes dedupes by
// outcome ID so a crash-and-retry of the same batch cannot duplicate
// entries.
type ResultStore interface {
	// AppendOutcomes durably appends outcomes, skipping IDs already present.
	AppendOutcomes(ctx context.Context, outcomes []models.Outcome) error

	// Load returns all recorded outcomes.
	Load(ctx context.Context) ([]models.Outcome, error)
}
