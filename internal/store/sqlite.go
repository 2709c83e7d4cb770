package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/filecheck/internal/core"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS validation_results (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		run_id TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL,
		validation_rule TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_validation_results_file_name ON validation_results(file_name, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_validation_results_run_id ON validation_results(run_id);
`

// SQLite records verdicts in a local database file. Used for single-node
// deployments and by the CLI.
type SQLite struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path in WAL mode and
// ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// EnsureSchema creates the results table if missing.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Record inserts one verdict.
func (s *SQLite) Record(ctx context.Context, rec core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := newEntry(ctx, rec, uuid.NewString(), s.now().UTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_results (id, run_id, file_name, validation_rule, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.RunID, e.FileName, e.Rule, e.Result, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert validation result: %w", err)
	}
	return nil
}

// List returns matching verdicts, newest first.
func (s *SQLite) List(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := listQuery(f, questionPlaceholder)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.FileName, &e.Rule, &e.Result, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation result: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate validation results: %w", err)
	}

	return entries, nil
}

// Ping checks that the database file is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
