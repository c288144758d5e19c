package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    id          UUID PRIMARY KEY,
    file_name   TEXT NOT NULL,
    sheet       TEXT NOT NULL,
    status      TEXT NOT NULL,
    error_code  TEXT NOT NULL DEFAULT '',
    total_rows  INTEGER NOT NULL DEFAULT 0,
    counts      JSONB NOT NULL DEFAULT '{}'::jsonb,
    warnings    TEXT[] NOT NULL DEFAULT '{}',
    ip_address  TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS extraction_runs_created_at_idx ON extraction_runs (created_at DESC);
`

const insertRunSQL = `
INSERT INTO extraction_runs
    (id, file_name, sheet, status, error_code, total_rows, counts, warnings,
     ip_address, user_agent, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const recentRunsSQL = `
SELECT id, file_name, sheet, status, error_code, total_rows, counts, warnings,
       ip_address, user_agent, duration_ms, created_at
FROM extraction_runs
ORDER BY created_at DESC
LIMIT $1`

// PostgresRecorder stores runs in the extraction_runs table.
type PostgresRecorder struct {
	db DBTX
}

// NewPostgresRecorder wraps a pool or transaction.
func NewPostgresRecorder(db DBTX) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Connect opens a pool sized from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the runs table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

// Record inserts run.
func (r *PostgresRecorder) Record(ctx context.Context, run Run) error {
	counts := run.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err = r.db.Exec(ctx, insertRunSQL,
		pgtype.UUID{Bytes: run.ID, Valid: true},
		run.FileName,
		run.Sheet,
		run.Status,
		run.ErrorCode,
		run.TotalRows,
		string(countsJSON),
		warnings,
		run.IPAddress,
		run.UserAgent,
		run.DurationMS,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Recent lists the newest runs first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.Query(ctx, recentRunsSQL, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func scanRun(rows pgx.Rows) (Run, error) {
	var (
		run        Run
		id         pgtype.UUID
		countsJSON []byte
	)

	err := rows.Scan(
		&id, &run.FileName, &run.Sheet, &run.Status, &run.ErrorCode, &run.TotalRows,
		&countsJSON, &run.Warnings, &run.IPAddress, &run.UserAgent, &run.DurationMS,
		&run.CreatedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.ID = id.Bytes
	if err := json.Unmarshal(countsJSON, &run.Counts); err != nil {
		return Run{}, fmt.Errorf("decode counts for run %s: %w", run.ID, err)
	}
	return run, nil
}
