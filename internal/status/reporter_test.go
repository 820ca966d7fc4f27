package status_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"

	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/status"
	"stubborn-archivist/mocks"
)

func newStores(t *testing.T, cp models.Checkpoint, outcomes []models.Outcome) (*mocks.MockCheckpointStore, *mocks.MockResultStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	checkpoints := mocks.NewMockCheckpointStore(ctrl)
	checkpoints.EXPECT().Load(gomock.Any()).Return(cp, nil).AnyTimes()
	results := mocks.NewMockResultStore(ctrl)
	results.EXPECT().Load(gomock.Any()).Return(outcomes, nil).AnyTimes()
	return checkpoints, results
}

func TestReportMidJob(t *testing.T) {
	cp := models.Checkpoint{LastIndex: 249, ProcessedIDs: make([]string, 250)}
	outcomes := make([]models.Outcome, 250)
	for i := range outcomes {
		if i%5 == 0 {
			outcomes[i].Status = models.StatusFailed
		} else {
			outcomes[i].Status = models.StatusSucceeded
		}
	}
	checkpoints, results := newStores(t, cp, outcomes)

	snap, err := status.Report(context.Background(), checkpoints, results, 1163, 100)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if snap.TotalItems != 1163 || snap.ProcessedCount != 250 {
		t.Fatalf("unexpected totals: %+v", snap)
	}
	if snap.SucceededCount != 200 || snap.FailedCount != 50 {
		t.Fatalf("unexpected outcome counts: %+v", snap)
	}
	if snap.RemainingCount != 913 {
		t.Fatalf("unexpected remaining: %d", snap.RemainingCount)
	}
	// ceil(913/100)
	if snap.EstimatedRemainingRuns != 10 {
		t.Fatalf("unexpected estimated runs: %d", snap.EstimatedRemainingRuns)
	}
	if snap.PercentComplete < 21.4 || snap.PercentComplete > 21.6 {
		t.Fatalf("unexpected percent: %f", snap.PercentComplete)
	}
}

func TestReportFreshJob(t *testing.T) {
	checkpoints, results := newStores(t, models.NewCheckpoint(), nil)

	snap, err := status.Report(context.Background(), checkpoints, results, 100, 30)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if snap.RemainingCount != 100 || snap.PercentComplete != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	// ceil(100/30)
	if snap.EstimatedRemainingRuns != 4 {
		t.Fatalf("unexpected estimated runs: %d", snap.EstimatedRemainingRuns)
	}
}

func TestReportCompleteJob(t *testing.T) {
	cp := models.Checkpoint{LastIndex: 9, ProcessedIDs: make([]string, 10)}
	checkpoints, results := newStores(t, cp, make([]models.Outcome, 10))

	snap, err := status.Report(context.Background(), checkpoints, results, 10, 100)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if snap.RemainingCount != 0 || snap.PercentComplete != 100 || snap.EstimatedRemainingRuns != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestReportEmptyLedger(t *testing.T) {
	checkpoints, results := newStores(t, models.NewCheckpoint(), nil)

	snap, err := status.Report(context.Background(), checkpoints, results, 0, 100)
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if snap.RemainingCount != 0 || snap.PercentComplete != 0 || snap.EstimatedRemainingRuns != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestReportCheckpointLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	checkpoints := mocks.NewMockCheckpointStore(ctrl)
	wantErr := errors.New("redis unreachable")
	checkpoints.EXPECT().Load(gomock.Any()).Return(models.Checkpoint{}, wantErr)
	results := mocks.NewMockResultStore(ctrl)

	if _, err := status.Report(context.Background(), checkpoints, results, 10, 100); !errors.Is(err, wantErr) {
		t.Fatalf("expected load error surfaced, got %v", err)
	}
}
