// Package sqlite persists catchment reports in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const migration = `
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	mode       TEXT NOT NULL,
	value      REAL NOT NULL,
	place_name TEXT NOT NULL DEFAULT '',
	matched    INTEGER NOT NULL DEFAULT 0,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// Store implements pipeline.ReportPublisher on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Publish stores a report, replacing any earlier report with the same ID.
func (s *Store) Publish(ctx context.Context, r domain.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite: marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (id, created_at, mode, value, place_name, matched, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GeneratedAt.UTC().Format(timeLayout), string(r.Mode), r.Value,
		r.Origin.PlaceName, len(r.MatchedCodes), string(payload),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert report %s: %w", r.ID, err)
	}
	return nil
}

// Get returns a stored report, or domain.ErrNoResults when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (domain.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("report %s: %w", id, domain.ErrNoResults)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("sqlite: get report %s: %w", id, err)
	}

	var r domain.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.Report{}, fmt.Errorf("sqlite: decode report %s: %w", id, err)
	}
	return r, nil
}

// List returns report summaries, most recent reports first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mode, value, place_name, matched FROM reports
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportSummary
	for rows.Next() {
		var (
			rs      domain.ReportSummary
			created string
			mode    string
		)
		if err := rows.Scan(&rs.ID, &created, &mode, &rs.Value, &rs.PlaceName, &rs.Matched); err != nil {
			return nil, fmt.Errorf("sqlite: scan report: %w", err)
		}
		rs.Mode = domain.IsochroneMode(mode)
		if rs.GeneratedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at %q: %w", created, err)
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list reports iterate: %w", err)
	}
	return out, nil
}
