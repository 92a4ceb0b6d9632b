package storage

import (
	"fmt"
	"log/slog"

	"dealsift/internal/config"
	"dealsift/internal/types"
)

// Storage is the interface for all persistence backends. Store must be
// insert-if-absent by identifier, so the accumulator's first-seen-wins
// semantics survive re-runs and multi-backend fan-out.
type Storage interface {
	// Store persists a batch of listings.
	Store(listings []*types.Listing) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the storage backend selected by cfg.Storage.Type.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "json", "jsonl", "csv":
		return NewFileStorage(cfg.Type, cfg.OutputPath, logger)
	case "postgres":
		return NewPostgresStorage(cfg.PostgresDSN, logger)
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "sqlite":
		return NewSQLiteStorage(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
