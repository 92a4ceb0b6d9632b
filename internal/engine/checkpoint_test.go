package engine

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.checkpoint")

	cp := &Checkpoint{
		BaseURL:     "https://example.com/search",
		LastPage:    7,
		Identifiers: []string{"1183001", "1183002", "synth-99-abc"},
		SavedAt:     time.Now(),
	}
	if err := cp.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("checkpoint not found after save")
	}
	if loaded.BaseURL != cp.BaseURL || loaded.LastPage != 7 {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Identifiers) != 3 {
		t.Errorf("identifiers = %v", loaded.Identifiers)
	}
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.checkpoint"))
	if err != nil {
		t.Fatal(err)
	}
	if cp != nil {
		t.Errorf("cp = %+v, want nil for missing file", cp)
	}
}

func TestLoadCheckpointEmptyPath(t *testing.T) {
	cp, err := LoadCheckpoint("")
	if err != nil || cp != nil {
		t.Errorf("cp=%v err=%v, want nil/nil", cp, err)
	}
}
