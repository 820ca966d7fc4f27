package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stubborn-archivist/internal/models"
)

func TestFileCheckpointLoadEmptyDefault(t *testing.T) {
	s := NewFileCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	cp, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cp.LastIndex != -1 {
		t.Fatalf("expected last index -1 for fresh store, got %d", cp.LastIndex)
	}
	if len(cp.ProcessedIDs) != 0 {
		t.Fatalf("expected no processed IDs, got %v", cp.ProcessedIDs)
	}
}

func TestFileCheckpointRoundTrip(t *testing.T) {
	s := NewFileCheckpointStore(filepath.Join(t.TempDir(), "data", "checkpoint.json"))
	ctx := context.Background()

	cp := models.Checkpoint{
		LastIndex:    42,
		ProcessedIDs: []string{"https://example.com/a", "https://example.com/b"},
		Timestamp:    time.Unix(1700000000, 0).UTC(),
	}
	if err := s.Update(ctx, cp); err != nil {
		t.Fatalf("update error: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got.LastIndex != 42 || len(got.ProcessedIDs) != 2 || !got.Timestamp.Equal(cp.Timestamp) {
		t.Fatalf("unexpected checkpoint: %+v", got)
	}
}

func TestFileCheckpointPersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := NewFileCheckpointStore(path)
	if err := s.Update(context.Background(), models.Checkpoint{LastIndex: 7, ProcessedIDs: []string{"u"}}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	for _, field := range []string{"last_index", "processed_urls", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("missing field %q in persisted checkpoint: %s", field, data)
		}
	}
}

func TestFileCheckpointUpdateLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileCheckpointStore(filepath.Join(dir, "checkpoint.json"))
	for i := 0; i < 3; i++ {
		if err := s.Update(context.Background(), models.Checkpoint{LastIndex: i}); err != nil {
			t.Fatalf("update %d error: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the checkpoint file, got %d entries", len(entries))
	}
}

func TestFileCheckpointCorruptFileSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := NewFileCheckpointStore(path).Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt checkpoint")
	}
}
