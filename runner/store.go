package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

var _ SummaryStore = (*FileStore)(nil)

// SummaryStore persists the run summary
type SummaryStore interface {
	Save(summary *types.Summary) error
}

// FileStore writes the summary as indented JSON into a directory
type FileStore struct {
	dir string
}

// NewFileStore creates a store writing summary_<identifier>.json into dir.
// The directory is resolved to an absolute path so later working directory
// changes do not move the output.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory '%s': %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", abs, err)
	}
	return &FileStore{dir: abs}, nil
}

// PathFor returns where the summary for identifier is written
func (s *FileStore) PathFor(identifier string) string {
	return filepath.Join(s.dir, types.SummaryFileName(identifier))
}

// Save writes the whole summary. The file is replaced atomically so a killed
// process leaves either the previous or the new summary on disk.
func (s *FileStore) Save(summary *types.Summary) error {
	data, err := json.MarshalIndent(summary, "", summaryIndent)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".summary-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp summary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close summary: %w", err)
	}
	if err := os.Chmod(tmpPath, summaryFilePerm); err != nil {
		return fmt.Errorf("failed to chmod summary: %w", err)
	}
	if err := os.Rename(tmpPath, s.PathFor(summary.Identifier)); err != nil {
		return fmt.Errorf("failed to replace summary: %w", err)
	}
	return nil
}
