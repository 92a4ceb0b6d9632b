package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"dealsift/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS listings (
	identifier        TEXT PRIMARY KEY,
	title             TEXT,
	url               TEXT,
	price             NUMERIC,
	monthly_recurring NUMERIC,
	multiple          NUMERIC,
	category          TEXT,
	badges            TEXT,
	confidence        INTEGER NOT NULL DEFAULT 0,
	synthetic         BOOLEAN NOT NULL DEFAULT FALSE,
	source_page       TEXT,
	scraped_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_category ON listings (category);
CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings (scraped_at);
`

// PostgresStorage persists listings to PostgreSQL. Inserts use
// ON CONFLICT DO NOTHING so re-running a scrape never overwrites the
// first-seen record for an identifier.
type PostgresStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStorage connects to PostgreSQL and ensures the schema exists.
func NewPostgresStorage(dsn string, logger *slog.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.With("component", "postgres_storage").Info("postgres storage ready")

	return &PostgresStorage{
		db:     db,
		logger: logger.With("component", "postgres_storage"),
	}, nil
}

func (s *PostgresStorage) Name() string { return "postgres" }

// Store inserts a batch of listings in one transaction.
func (s *PostgresStorage) Store(listings []*types.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO listings
			(identifier, title, url, price, monthly_recurring, multiple,
			 category, badges, confidence, synthetic, source_page, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (identifier) DO NOTHING`)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("prepare: %w", err)}
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range listings {
		res, err := stmt.Exec(
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
			l.ScrapedAt,
		)
		if err != nil {
			return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("insert %s: %w", l.Identifier, err)}
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("commit: %w", err)}
	}

	s.logger.Debug("batch stored", "batch", len(listings), "inserted", inserted)
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func nullableString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullableFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func joinBadges(badges []string) sql.NullString {
	if len(badges) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(badges, ","), Valid: true}
}
