// Package registry persists a record of every deduplication run against
// Postgres, so the HTTP API can list and inspect past runs.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

// Registry wraps a Postgres connection holding the dedup_runs table.
type Registry struct {
	db *sql.DB
}

// Open connects to the registry database at dsn and ensures its schema
// exists.
func Open(dsn string, maxConnections int) (*Registry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open: %w", err)
	}
	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections / 2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("registry: ping: %w", err)
	}

	r := &Registry{db: db}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS dedup_runs (
			id                 UUID PRIMARY KEY,
			mode               TEXT NOT NULL,
			started_at         TIMESTAMPTZ NOT NULL,
			finished_at        TIMESTAMPTZ,
			input_record_count INTEGER NOT NULL DEFAULT 0,
			final_record_count INTEGER NOT NULL DEFAULT 0,
			cluster_count      INTEGER NOT NULL DEFAULT 0,
			duplicate_count    INTEGER NOT NULL DEFAULT 0,
			error              TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("registry: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Run is one row of run bookkeeping.
type Run struct {
	ID         string
	Mode       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Stats      dedup.Statistics
	Err        string
}

// Begin records the start of a run and returns its generated id.
func (r *Registry) Begin(mode string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(
		`INSERT INTO dedup_runs (id, mode, started_at) VALUES ($1, $2, $3)`,
		id, mode, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("registry: begin: %w", err)
	}
	return id, nil
}

// Finish records the outcome of a run, successful or not. runErr may be
// nil.
func (r *Registry) Finish(id string, stats dedup.Statistics, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	_, err := r.db.Exec(`
		UPDATE dedup_runs
		SET finished_at = $2, input_record_count = $3, final_record_count = $4,
		    cluster_count = $5, duplicate_count = $6, error = $7
		WHERE id = $1
	`, id, time.Now().UTC(), stats.InputRecordCount, stats.FinalRecordCount,
		stats.ClusterCount, stats.DuplicateRecordCount, nullIfEmpty(errMsg))
	if err != nil {
		return fmt.Errorf("registry: finish: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (r *Registry) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, mode, started_at, finished_at, input_record_count,
		       final_record_count, cluster_count, duplicate_count, COALESCE(error, '')
		FROM dedup_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var stats dedup.Statistics
		if err := rows.Scan(&run.ID, &run.Mode, &run.StartedAt, &run.FinishedAt,
			&stats.InputRecordCount, &stats.FinalRecordCount, &stats.ClusterCount,
			&stats.DuplicateRecordCount, &run.Err); err != nil {
			return nil, fmt.Errorf("registry: scan: %w", err)
		}
		run.Stats = stats
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get returns a single run by id.
func (r *Registry) Get(id string) (Run, error) {
	var run Run
	var stats dedup.Statistics
	err := r.db.QueryRow(`
		SELECT id, mode, started_at, finished_at, input_record_count,
		       final_record_count, cluster_count, duplicate_count, COALESCE(error, '')
		FROM dedup_runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Mode, &run.StartedAt, &run.FinishedAt,
		&stats.InputRecordCount, &stats.FinalRecordCount, &stats.ClusterCount,
		&stats.DuplicateRecordCount, &run.Err)
	if err != nil {
		return Run{}, fmt.Errorf("registry: get: %w", err)
	}
	run.Stats = stats
	return run, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
