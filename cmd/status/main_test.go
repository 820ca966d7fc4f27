package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/store"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	dir := t.TempDir()
	checkpoints := store.NewFileCheckpointStore(filepath.Join(dir, "cp.json"))
	results := store.NewFileResultStore(filepath.Join(dir, "results.json"))

	if err := results.AppendOutcomes(context.Background(), []models.Outcome{
		{ID: "https://example.com/a", Status: models.StatusSucceeded},
		{ID: "https://example.com/b", Status: models.StatusFailed, Error: "empty content"},
	}); err != nil {
		t.Fatalf("seed results: %v", err)
	}
	cp := models.Checkpoint{LastIndex: 1, ProcessedIDs: []string{"https://example.com/a", "https://example.com/b"}}
	if err := checkpoints.Update(context.Background(), cp); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	return newServer(checkpoints, results, 10, 4)
}

func TestHandleProgress(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/progress", nil)
	rec := httptest.NewRecorder()
	srv.handleProgress(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var snapshot models.ProgressSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.TotalItems != 10 || snapshot.ProcessedCount != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.SucceededCount != 1 || snapshot.FailedCount != 1 {
		t.Fatalf("unexpected outcome tallies: %+v", snapshot)
	}
	if snapshot.RemainingCount != 8 || snapshot.EstimatedRemainingRuns != 2 {
		t.Fatalf("unexpected remaining estimates: %+v", snapshot)
	}
}

func TestHandleProgressRejectsPost(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/progress", nil)
	rec := httptest.NewRecorder()
	srv.handleProgress(rec, req)
	if rec.Code != 405 {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestHandleMetricsGauges(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.handleMetrics(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"archivist_status_up 1",
		"archivist_total_items 10",
		"archivist_processed_items 2",
		"archivist_remaining_items 8",
		"archivist_estimated_remaining_runs 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics body to contain %q, got:\n%s", want, body)
		}
	}
}
