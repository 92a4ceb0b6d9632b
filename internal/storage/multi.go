package storage

import (
	"errors"
	"log/slog"

	"dealsift/internal/types"
)

// MultiStorage fans writes out to several backends. A failing backend does
// not block the others; errors are joined and returned after all backends
// have been attempted.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a fan-out over the given backends.
func NewMultiStorage(logger *slog.Logger, backends ...Storage) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (m *MultiStorage) Name() string { return "multi" }

func (m *MultiStorage) Store(listings []*types.Listing) error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Store(listings); err != nil {
			m.logger.Error("backend store failed", "backend", b.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiStorage) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
