package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint captures enough run state to resume a scrape: the page frontier
// and the identifiers already persisted, so a resumed run re-stores nothing.
type Checkpoint struct {
	BaseURL     string    `json:"base_url"`
	LastPage    int       `json:"last_page"`
	Identifiers []string  `json:"identifiers"`
	SavedAt     time.Time `json:"saved_at"`
}

// Save writes the checkpoint atomically (write to temp, then rename).
func (c *Checkpoint) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint reads a checkpoint from disk. A missing file is not an
// error; it returns (nil, nil).
func LoadCheckpoint(path string) (*Checkpoint, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return &cp, nil
}
