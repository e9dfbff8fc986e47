// Package history stores the outcome of every played queue item.
//
// Storage is backed by a SQLite database at ~/.config/vmacro/history.db
// (or the platform-equivalent path returned by os.UserConfigDir).
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run matches an item ID
var ErrNotFound = errors.New("history: run not found")

// Store defines the persistence interface for runs.
type Store interface {
	// Start records a new running run and assigns its ID.
	Start(itemID, name string) (*Run, error)

	// Finish sets the final status of the latest run of itemID.
	Finish(itemID, status string, runErr error) error

	// ListRecent returns the most recent n runs, newest first.
	ListRecent(n int) ([]Run, error)

	// DeleteOlderThan removes finished runs older than d.
	DeleteOlderThan(d time.Duration) (int64, error)

	// Close releases database resources.
	Close() error
}

// SQLiteStore implements Store backed by a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenAt creates or opens a SQLite database at the given path.
// The parent directory is created if it does not exist.
func OpenAt(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("history: failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the runs table if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id       TEXT    NOT NULL,
			name          TEXT    NOT NULL DEFAULT '',
			status        TEXT    NOT NULL DEFAULT 'running',
			error_message TEXT    NOT NULL DEFAULT '',
			started_at    TEXT    NOT NULL,
			finished_at   TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_runs_item ON runs(item_id);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}
	return nil
}

// Start inserts a running run for itemID.
func (s *SQLiteStore) Start(itemID, name string) (*Run, error) {
	run := &Run{ItemID: itemID, Name: name, Status: StatusRunning, StartedAt: s.now()}
	result, err := s.db.Exec(`
		INSERT INTO runs (item_id, name, status, started_at)
		VALUES (?, ?, ?, ?)`,
		run.ItemID, run.Name, run.Status, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("history: insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("history: failed to get last insert ID: %w", err)
	}
	run.ID = id
	return run, nil
}

// Finish sets status, error and finish time on the newest run of itemID.
func (s *SQLiteStore) Finish(itemID, status string, runErr error) error {
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	result, err := s.db.Exec(`
		UPDATE runs SET status=?, error_message=?, finished_at=?
		WHERE id = (SELECT MAX(id) FROM runs WHERE item_id = ?)`,
		status, msg, s.now().Format(time.RFC3339Nano), itemID,
	)
	if err != nil {
		return fmt.Errorf("history: update failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	return nil
}

// ListRecent returns the most recent n runs.
func (s *SQLiteStore) ListRecent(n int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, item_id, name, status, error_message, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// DeleteOlderThan removes finished runs started more than d ago.
func (s *SQLiteStore) DeleteOlderThan(d time.Duration) (int64, error) {
	cutoff := s.now().Add(-d).Format(time.RFC3339Nano)
	result, err := s.db.Exec(`
		DELETE FROM runs WHERE status != 'running' AND started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanRows scans multiple rows into Runs.
func scanRows(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var run Run
		var startedStr, finishedStr string
		err := rows.Scan(&run.ID, &run.ItemID, &run.Name, &run.Status, &run.ErrorMessage, &startedStr, &finishedStr)
		if err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		if finishedStr != "" {
			run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
