package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Engine.Concurrency = 0 }},
		{"excessive concurrency", func(c *Config) { c.Engine.Concurrency = 200 }},
		{"zero max pages", func(c *Config) { c.Engine.MaxPages = 0 }},
		{"zero empty page limit", func(c *Config) { c.Engine.EmptyPageLimit = 0 }},
		{"unknown fetcher", func(c *Config) { c.Fetcher.Type = "carrier-pigeon" }},
		{"min over max containers", func(c *Config) { c.Locator.MinContainers = 99 }},
		{"confidence over 100", func(c *Config) { c.Extractor.MinConfidence = 150 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "tape" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }},
		{"mongodb without uri", func(c *Config) { c.Storage.Type = "mongodb" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://example.com/search?page=1"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	for _, raw := range []string{"ftp://example.com", "example.com", "https://"} {
		if err := ValidateURL(raw); err == nil {
			t.Errorf("ValidateURL(%q) accepted", raw)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("DEALSIFT_ENGINE_CONCURRENCY", "9")
	t.Setenv("DEALSIFT_STORAGE_TYPE", "csv")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Concurrency != 9 {
		t.Errorf("concurrency = %d, want 9 from env", cfg.Engine.Concurrency)
	}
	if cfg.Storage.Type != "csv" {
		t.Errorf("storage type = %q, want csv from env", cfg.Storage.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dealsift.yaml")
	yaml := []byte("engine:\n  max_pages: 7\nextractor:\n  min_confidence: 50\n")
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.MaxPages != 7 {
		t.Errorf("max_pages = %d, want 7", cfg.Engine.MaxPages)
	}
	if cfg.Extractor.MinConfidence != 50 {
		t.Errorf("min_confidence = %d, want 50", cfg.Extractor.MinConfidence)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.Concurrency != DefaultConfig().Engine.Concurrency {
		t.Errorf("concurrency = %d, default expected", cfg.Engine.Concurrency)
	}
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "dealsift.yaml")
	if err := WriteStarter(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("starter config does not load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("starter config invalid: %v", err)
	}
}
