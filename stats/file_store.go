package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements Store using a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store, creating the parent directory
// if it doesn't exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("stats path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Save writes the snapshot, replacing the previous file atomically.
func (fs *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace stats file: %w", err)
	}
	return nil
}

// Load reads the last saved snapshot
func (fs *FileStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	jsonData, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read stats file: %w", err)
	}

	if err := json.Unmarshal(jsonData, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return snap, nil
}

// Close is a no-op for files.
func (fs *FileStore) Close() error {
	return nil
}
