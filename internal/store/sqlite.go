// Package store archives accepted leads in SQLite so runs against the same
// directory can be resumed and deduplicated across invocations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"leadgrab/internal/lead"
)

// Store is a SQLite-backed lead archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT,
    identity_key TEXT NOT NULL,
    company_name TEXT,
    address TEXT,
    email TEXT,
    website TEXT,
    phone TEXT,
    country TEXT,
    field TEXT,
    source_url TEXT,
    missing_fields TEXT,
    scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_identity ON leads(identity_key);
CREATE INDEX IF NOT EXISTS idx_leads_run ON leads(run_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert archives one lead under the given run id. It reports false when a
// lead with the same identity is already archived; identity folds case and
// whitespace the same way the run ledger does, so "ACME" and "acme" are one
// lead here too.
func (s *Store) Insert(ctx context.Context, runID string, l *lead.Lead, missing []string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (run_id, identity_key, company_name, address, email, website, phone, country, field, source_url, missing_fields, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_key) DO NOTHING`,
		runID, lead.IdentityKey(l), l.CompanyName, l.Address, l.Email, l.Website, l.Phone, l.Country, l.Field,
		l.SourceURL, strings.Join(missing, ","), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to archive lead %q: %w", l.CompanyName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IdentityKeys returns the dedup keys of every archived lead, used to seed
// the run's ledger so already-archived leads are skipped.
func (s *Store) IdentityKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity_key FROM leads`)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived leads: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
