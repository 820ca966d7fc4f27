package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"stubborn-archivist/internal/models"
)

// FileResultStore accumulates outcomes in a single JSON array file, the
// layout the status tooling and downstream consumers read. Appends are
// idempotent: an outcome whose ID is already recorded is skipped, so
// re-flushing the same batch after a crash cannot duplicate entries.
type FileResultStore struct {
	path string
}

// NewFileResultStore creates a store backed by the given file path.
func NewFileResultStore(path string) *FileResultStore {
	return &FileResultStore{path: path}
}

// Load returns all recorded outcomes; an absent file means none yet.
func (s *FileResultStore) Load(_ context.Context) ([]models.Outcome, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results %s: %w", s.path, err)
	}

	var outcomes []models.Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", s.path, err)
	}
	return outcomes, nil
}

// AppendOutcomes merges the batch into the file, deduping by outcome ID
// (both against existing records and within the batch), then atomically
// replaces the file.
func (s *FileResultStore) AppendOutcomes(ctx context.Context, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		seen[o.ID] = struct{}{}
	}

	merged := existing
	added := 0
	for _, o := range outcomes {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		merged = append(merged, o)
		added++
	}
	if added == 0 {
		return nil
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}
