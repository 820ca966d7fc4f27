package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stubborn-archivist/internal/models"
)

// FileCheckpointStore keeps the checkpoint in a single JSON file. Update
// writes to a temp file in the same directory and renames it over the
// target, so a reader never observes a half-written checkpoint.
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore creates a store backed by the given file path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

// Load reads the checkpoint file, returning the empty default if it does
// not exist yet.
func (s *FileCheckpointStore) Load(_ context.Context) (models.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewCheckpoint(), nil
		}
		return models.Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return models.Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	return cp, nil
}

// Update atomically replaces the checkpoint file.
func (s *FileCheckpointStore) Update(_ context.Context, cp models.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place. The temp file lives in the same directory so the rename stays
// on one filesystem.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
