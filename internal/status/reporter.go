package status

import (
	"context"
	"fmt"

	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/store"
)

// Report computes the progress snapshot by joining checkpoint and result
// store state against the ledger size. Read-only: safe to call at any time,
// including while a run is in flight on another host (it sees the last
// durable flush).
func Report(ctx context.Context, checkpoints store.CheckpointStore, results store.ResultStore, ledgerSize, maxItemsPerRun int) (models.ProgressSnapshot, error) {
	cp, err := checkpoints.Load(ctx)
	if err != nil {
		return models.ProgressSnapshot{}, fmt.Errorf("load checkpoint: %w", err)
	}
	outcomes, err := results.Load(ctx)
	if err != nil {
		return models.ProgressSnapshot{}, fmt.Errorf("load results: %w", err)
	}

	snapshot := models.ProgressSnapshot{
		TotalItems:     ledgerSize,
		ProcessedCount: len(cp.ProcessedIDs),
	}
	for _, o := range outcomes {
		switch o.Status {
		case models.StatusSucceeded:
			snapshot.SucceededCount++
		case models.StatusFailed:
			snapshot.FailedCount++
		}
	}

	covered := cp.LastIndex + 1
	if covered < 0 {
		covered = 0
	}
	if covered > ledgerSize {
		covered = ledgerSize
	}
	snapshot.RemainingCount = ledgerSize - covered
	if ledgerSize > 0 {
		snapshot.PercentComplete = float64(covered) / float64(ledgerSize) * 100
	}

	if maxItemsPerRun < 1 {
		maxItemsPerRun = 1
	}
	snapshot.EstimatedRemainingRuns = (snapshot.RemainingCount + maxItemsPerRun - 1) / maxItemsPerRun

	return snapshot, nil
}
