package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/filecheck/internal/config"
	"github.com/JonMunkholm/filecheck/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS validation_results (
		seq BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		run_id TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL,
		validation_rule TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_validation_results_file_name ON validation_results (file_name, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_validation_results_run_id ON validation_results (run_id)`,
}

const postgresInsert = `INSERT INTO validation_results (id, run_id, file_name, validation_rule, result, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Postgres records verdicts in PostgreSQL. Each Record is a single INSERT
// and therefore its own transaction.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres wraps an existing connection, pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	p := &Postgres{db: db, now: time.Now}
	if pool, ok := db.(*pgxpool.Pool); ok {
		p.pool = pool
	}
	return p
}

// OpenPostgres connects a pool using cfg and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewPostgres(pool), nil
}

// DatabaseName extracts the database name from a connection URL for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// EnsureSchema creates the results table and its indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Record inserts one verdict.
func (p *Postgres) Record(ctx context.Context, rec core.Record) error {
	id := uuid.New()
	e := newEntry(ctx, rec, id.String(), p.now().UTC())
	_, err := p.db.Exec(ctx, postgresInsert, id, e.RunID, e.FileName, e.Rule, e.Result, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert validation result: %w", err)
	}
	return nil
}

// List returns matching verdicts, newest first.
func (p *Postgres) List(ctx context.Context, f Filter) ([]Entry, error) {
	query, args := listQuery(f, dollarPlaceholder)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query validation results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			id uuid.UUID
		)
		if err := rows.Scan(&id, &e.RunID, &e.FileName, &e.Rule, &e.Result, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation result: %w", err)
		}
		e.ID = id.String()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation results: %w", err)
	}

	return entries, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p.pool != nil {
		return p.pool.Ping(ctx)
	}
	var one int
	return p.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// Close releases the pool if this store opened it.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
