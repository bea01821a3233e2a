package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps markers in a small local database file, for hosts that
// run the exporter without a redis alongside.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and initializes, when new) the marker database at
// the given path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}

	const ddl = `
		CREATE TABLE IF NOT EXISTS pipeline_state (
			test_type    TEXT PRIMARY KEY,
			last_success TIMESTAMP NOT NULL
		)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: init sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// LastSuccess reads the stored marker.
func (s *SQLiteStore) LastSuccess(ctx context.Context, testType string) (time.Time, bool, error) {
	const query = `SELECT last_success FROM pipeline_state WHERE test_type = ?`

	var t time.Time
	err := s.db.QueryRowContext(ctx, query, testType).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("state: read marker: %w", err)
	}
	return t.UTC(), true, nil
}

// Commit advances the marker unless the stored one is already newer. The
// comparison happens inside the upsert, so concurrent processors for
// different data types never interfere.
func (s *SQLiteStore) Commit(ctx context.Context, testType string, t time.Time) error {
	const query = `
		INSERT INTO pipeline_state (test_type, last_success)
		VALUES (?, ?)
		ON CONFLICT (test_type) DO UPDATE SET last_success = excluded.last_success
		WHERE excluded.last_success > pipeline_state.last_success`

	if _, err := s.db.ExecContext(ctx, query, testType, t.UTC()); err != nil {
		return fmt.Errorf("state: write marker: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
