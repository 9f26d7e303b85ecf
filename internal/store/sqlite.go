// Package store keeps a local history of runs in SQLite. The JSON report
// files remain the source of truth; this is bookkeeping for `runs`.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// RunKind identifies which command produced a run record.
type RunKind string

const (
	RunAnalyze          RunKind = "analyze"
	RunExecute          RunKind = "execute"
	RunVerify           RunKind = "verify"
	RunLetterboxAnalyze RunKind = "letterbox-analyze"
	RunLetterboxExecute RunKind = "letterbox-execute"
	RunLetterboxVerify  RunKind = "letterbox-verify"
	RunRestore          RunKind = "restore"
)

// Run is one recorded command invocation.
type Run struct {
	ID        string
	Kind      RunKind
	Status    string
	Summary   string
	CreatedAt time.Time
}

// Store records run history in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run-history database at path and
// configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL,
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one run record. summary is a JSON blob of counters.
func (s *Store) RecordRun(ctx context.Context, kind RunKind, status, summary string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    status,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, summary, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Status, run.Summary, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert run")
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, status, summary, created_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var run Run
		var kind string
		if err := rows.Scan(&run.ID, &kind, &run.Status, &run.Summary, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		run.Kind = RunKind(kind)
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "store: iterate runs")
}
