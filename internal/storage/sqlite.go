package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"dealsift/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS listings (
	identifier        TEXT PRIMARY KEY,
	title             TEXT,
	url               TEXT,
	price             REAL,
	monthly_recurring REAL,
	multiple          REAL,
	category          TEXT,
	badges            TEXT,
	confidence        INTEGER NOT NULL DEFAULT 0,
	synthetic         INTEGER NOT NULL DEFAULT 0,
	source_page       TEXT,
	scraped_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_category ON listings (category);
`

// SQLiteStorage persists listings to a local SQLite database. Inserts use
// INSERT OR IGNORE to keep first-seen records intact across runs.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the SQLite database at path.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.With("component", "sqlite_storage").Info("sqlite storage ready", "path", path)

	return &SQLiteStorage{
		db:     db,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

// Store inserts a batch of listings in one transaction.
func (s *SQLiteStorage) Store(listings []*types.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO listings
			(identifier, title, url, price, monthly_recurring, multiple,
			 category, badges, confidence, synthetic, source_page, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("prepare: %w", err)}
	}
	defer stmt.Close()

	for _, l := range listings {
		_, err := stmt.Exec(
			l.Identifier,
			nullableString(l.Title),
			nullableString(l.URL),
			nullableFloat(l.Price),
			nullableFloat(l.MonthlyRecurring),
			nullableFloat(l.Multiple),
			nullableString(l.Category),
			joinBadges(l.Badges),
			l.Confidence,
			l.Synthetic(),
			l.SourcePage,
			l.ScrapedAt.Format("2006-01-02T15:04:05Z07:00"),
		)
		if err != nil {
			return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert %s: %w", l.Identifier, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("commit: %w", err)}
	}

	s.logger.Debug("batch stored", "batch", len(listings))
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
