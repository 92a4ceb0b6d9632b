package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > 64 {
		return fmt.Errorf("engine.concurrency must be <= 64, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.MaxPages < 1 {
		return fmt.Errorf("engine.max_pages must be >= 1, got %d", cfg.Engine.MaxPages)
	}
	if cfg.Engine.EmptyPageLimit < 1 {
		return fmt.Errorf("engine.empty_page_limit must be >= 1, got %d", cfg.Engine.EmptyPageLimit)
	}
	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}
	if cfg.Engine.PolitenessDelay < 0 {
		return fmt.Errorf("engine.politeness_delay must be >= 0")
	}
	if cfg.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.FlushEvery < 1 {
		return fmt.Errorf("engine.flush_every must be >= 1, got %d", cfg.Engine.FlushEvery)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	if cfg.Locator.MaxContainers < 1 {
		return fmt.Errorf("locator.max_containers must be >= 1, got %d", cfg.Locator.MaxContainers)
	}
	if cfg.Locator.MinContainers < 1 || cfg.Locator.MinContainers > cfg.Locator.MaxContainers {
		return fmt.Errorf("locator.min_containers must be in [1, max_containers], got %d", cfg.Locator.MinContainers)
	}
	if cfg.Locator.MaxAncestorDepth < 1 || cfg.Locator.MaxAncestorDepth > 12 {
		return fmt.Errorf("locator.max_ancestor_depth must be in [1, 12], got %d", cfg.Locator.MaxAncestorDepth)
	}
	if cfg.Locator.MinCardTextLen < 0 {
		return fmt.Errorf("locator.min_card_text_len must be >= 0")
	}

	if cfg.Extractor.MinConfidence < 0 || cfg.Extractor.MinConfidence > 100 {
		return fmt.Errorf("extractor.min_confidence must be in [0, 100], got %d", cfg.Extractor.MinConfidence)
	}
	if cfg.Extractor.MaxPrice <= 0 {
		return fmt.Errorf("extractor.max_price must be > 0")
	}
	if cfg.Extractor.MaxMonthlyRecurring <= 0 {
		return fmt.Errorf("extractor.max_monthly_recurring must be > 0")
	}
	if cfg.Extractor.MaxMultiple <= 0 {
		return fmt.Errorf("extractor.max_multiple must be > 0")
	}

	switch cfg.Storage.Type {
	case "json", "jsonl", "csv":
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for storage.type 'postgres'")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for storage.type 'mongodb'")
		}
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for storage.type 'sqlite'")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, postgres, mongodb, sqlite)", cfg.Storage.Type)
	}
	if cfg.Storage.BatchSize < 1 {
		return fmt.Errorf("storage.batch_size must be >= 1, got %d", cfg.Storage.BatchSize)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a scrape seed.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
