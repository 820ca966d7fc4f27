package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"stubborn-archivist/internal/extract"
	"stubborn-archivist/internal/ledger"
	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/store"
)

// Defaults sized so a full slice stays well under a CI job's wall-clock
// limit: 100 items at (30s fetch budget + 1s delay) is under an hour.
const (
	DefaultMaxItemsPerRun = 100
	DefaultFlushEvery     = 5
	DefaultInterItemDelay = time.Second
)

// OutcomeSink receives outcomes after they are durably flushed. Publish
// failures are logged and ignored; the result store is the source of truth.
type OutcomeSink interface {
	PublishOutcomes(ctx context.Context, runID string, outcomes []models.Outcome) error
}

// Config holds the knobs for one execution.
type Config struct {
	// MaxItemsPerRun bounds the slice attempted in one execution; sized to
	// fit the external time budget.
	MaxItemsPerRun int
	// FlushEvery is the pending-outcome count that triggers a durable flush.
	// It bounds how much work a crash can force the next run to redo.
	FlushEvery int
	// InterItemDelay spaces extraction attempts for politeness.
	InterItemDelay time.Duration

	// RunID labels published outcome events. Optional.
	RunID string
	// Sink, when non-nil, receives each flushed batch. Optional.
	Sink OutcomeSink

	// Now overrides the clock (tests).
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.MaxItemsPerRun < 1 {
		c.MaxItemsPerRun = DefaultMaxItemsPerRun
	}
	if c.FlushEvery < 1 {
		c.FlushEvery = DefaultFlushEvery
	}
	if c.InterItemDelay < 0 {
		c.InterItemDelay = DefaultInterItemDelay
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// RunOnce executes one time-bounded slice of the ledger: it resumes from the
// checkpoint, drives the extractor over the slice sequentially, flushes
// outcomes to the result store at the configured cadence, and advances the
// checkpoint. Item-level extraction failures become failed outcomes and
// never abort the run; a store write failure does, with the checkpoint left
// at its last durable value.
//
// The flush ordering is the central correctness property: outcomes are
// appended to the result store before the checkpoint advances past their
// indices. A crash between the two leaves identifiers in the result store
// that the checkpoint does not yet cover; the skip check consults the
// processed set (not just last_index) so the next run accounts for them
// without re-extracting.
//
// At most one RunOnce may be active against a given store pair.
func RunOnce(
	ctx context.Context,
	ld *ledger.Ledger,
	checkpoints store.CheckpointStore,
	results store.ResultStore,
	extractor extract.Extractor,
	cfg Config,
) (models.RunReport, error) {
	cfg = cfg.withDefaults()

	cp, err := checkpoints.Load(ctx)
	if err != nil {
		return models.RunReport{}, fmt.Errorf("load checkpoint: %w", err)
	}

	lastLedgerIndex := ld.LastIndex()
	start := cp.LastIndex + 1
	report := models.RunReport{StartIndex: start, EndIndex: cp.LastIndex}

	// Nothing left to do covers the empty ledger and a checkpoint at or past
	// the ledger end (e.g. after the ledger file shrank).
	if ld.Len() == 0 || start > lastLedgerIndex {
		log.Printf("run complete: checkpoint index=%d covers ledger of %d items", cp.LastIndex, ld.Len())
		return report, nil
	}

	end := start + cfg.MaxItemsPerRun - 1
	if end > lastLedgerIndex {
		end = lastLedgerIndex
	}

	processed := cp.ProcessedSet()
	processedIDs := append([]string(nil), cp.ProcessedIDs...)

	// A crash between a result flush and the checkpoint update leaves
	// outcomes the checkpoint does not cover. Fold their identifiers into
	// the processed set so they are skipped, not re-extracted, and carried
	// into the next checkpoint write.
	recorded, err := results.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load results: %w", err)
	}
	for _, o := range recorded {
		if _, ok := processed[o.ID]; !ok {
			processed[o.ID] = struct{}{}
			processedIDs = append(processedIDs, o.ID)
		}
	}
	var pending []models.Outcome
	flushedThrough := cp.LastIndex

	flush := func(through int) error {
		if err := results.AppendOutcomes(ctx, pending); err != nil {
			return fmt.Errorf("append outcomes: %w", err)
		}
		for _, o := range pending {
			processedIDs = append(processedIDs, o.ID)
		}
		next := models.Checkpoint{
			LastIndex:    through,
			ProcessedIDs: processedIDs,
			Timestamp:    cfg.Now().UTC(),
		}
		if err := checkpoints.Update(ctx, next); err != nil {
			return fmt.Errorf("update checkpoint: %w", err)
		}
		if cfg.Sink != nil && len(pending) > 0 {
			if err := cfg.Sink.PublishOutcomes(ctx, cfg.RunID, pending); err != nil {
				log.Printf("outcome feed publish error (ignored): %v", err)
			}
		}
		log.Printf("flushed %d outcome(s), checkpoint index=%d processed=%d", len(pending), through, len(processedIDs))
		flushedThrough = through
		pending = pending[:0]
		return nil
	}

	cancelled := false
	done := start - 1

	for i := start; i <= end; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		item := ld.Item(i)
		switch {
		case item.ID == "":
			report.Skipped++
		case alreadyProcessed(processed, item.ID):
			report.Skipped++
			log.Printf("[%d/%d] skipping (already processed): %s", i+1, ld.Len(), item.ID)
		default:
			log.Printf("[%d/%d] processing: %s", i+1, ld.Len(), item.ID)
			outcome := safeExtract(ctx, extractor, item.ID)
			outcome.RecordedAt = cfg.Now().UTC()
			report.Attempted++
			if outcome.Status == models.StatusSucceeded {
				report.Succeeded++
			} else {
				report.Failed++
				log.Printf("[%d/%d] failed: %s (%s)", i+1, ld.Len(), item.ID, outcome.Error)
			}
			pending = append(pending, outcome)
			processed[item.ID] = struct{}{}
		}
		done = i

		if len(pending) >= cfg.FlushEvery {
			if err := flush(i); err != nil {
				report.EndIndex = flushedThrough
				report.HasMoreWork = flushedThrough < lastLedgerIndex
				return report, err
			}
		}

		if i < end && cfg.InterItemDelay > 0 {
			if !sleepCtx(ctx, cfg.InterItemDelay) {
				cancelled = true
				break
			}
		}
	}

	// Final flush covers the tail of the slice, and advances the checkpoint
	// even when every remaining item was skipped.
	if done > flushedThrough || len(pending) > 0 {
		if err := flush(done); err != nil {
			report.EndIndex = flushedThrough
			report.HasMoreWork = flushedThrough < lastLedgerIndex
			return report, err
		}
	}

	// EndIndex reports what this run actually covered; a cancelled run stops
	// short of the planned slice end.
	report.EndIndex = done
	report.HasMoreWork = done < lastLedgerIndex
	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func alreadyProcessed(processed map[string]struct{}, id string) bool {
	_, ok := processed[id]
	return ok
}

// safeExtract invokes the extractor and converts a panic into a failed
// outcome so one bad item cannot abort the run.
func safeExtract(ctx context.Context, extractor extract.Extractor, id string) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = models.FailedOutcome(id, fmt.Sprintf("extraction panic: %v", r))
		}
	}()
	outcome = extractor.Extract(ctx, id)
	if outcome.ID == "" {
		outcome.ID = id
	}
	return outcome
}

// sleepCtx waits d, returning false if the context was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
