// ABOUTME: JSON file implementation of the binding snapshot
// ABOUTME: Writes go to a temp file that is renamed over the previous snapshot

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/2389/helpdesk-bridge/internal/binding"
)

// FileSnapshot stores bindings as a JSON array in a single file.
type FileSnapshot struct {
	path   string
	logger *slog.Logger
}

// NewFileSnapshot creates a snapshotter writing to path. The file is not
// touched until the first Save. A nil logger means slog.Default().
func NewFileSnapshot(path string, logger *slog.Logger) *FileSnapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSnapshot{
		path:   path,
		logger: logger.With("component", "store", "driver", "file"),
	}
}

// Load reads the snapshot. A missing file yields no bindings.
func (f *FileSnapshot) Load(ctx context.Context) ([]binding.Binding, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []binding.Binding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot: %v", ErrPersistence, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing snapshot %s: %v", ErrPersistence, f.path, err)
	}

	return FromRecords(records), nil
}

// Save writes bindings, replacing the previous snapshot.
func (f *FileSnapshot) Save(ctx context.Context, bindings []binding.Binding) error {
	data, err := json.MarshalIndent(ToRecords(bindings), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding snapshot: %v", ErrPersistence, err)
	}
	data = append(data, '\n')

	if err := writeAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing snapshot: %v", ErrPersistence, err)
	}

	f.logger.Debug("saved snapshot", "path", f.path, "bindings", len(bindings))
	return nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
