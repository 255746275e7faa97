package history

import (
	"context"
	"fmt"
	"time"

	"github.com/suntyn/sitegen/internal/apperr"
)

const defaultLimit = 20

// Artifact is one file written by a run.
type Artifact struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Run is one publish pass.
type Run struct {
	ID         int64      `json:"id"`
	RunID      string     `json:"run_id"`
	Trigger    string     `json:"trigger"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	Files      []Artifact `json:"files"`
}

// Count is the number of runs for one trigger/outcome pair.
type Count struct {
	Trigger string
	Outcome string // "success" or "failure"
	N       int64
}

// Recorder is the write side used by the publisher.
type Recorder interface {
	Record(ctx context.Context, r Run) (int64, error)
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// Record inserts a run and its artifacts within a transaction.
func (db *DB) Record(ctx context.Context, r Run) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, trigger_kind, started_at, finished_at, success, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Trigger, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Success, r.Error)
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: run id: %w", err)
	}

	if len(r.Files) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO artifacts (run, name, checksum, size) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("history: prepare artifact insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range r.Files {
			if _, err := stmt.ExecContext(ctx, id, f.Name, f.Checksum, f.Size); err != nil {
				return 0, fmt.Errorf("history: insert artifact: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, run_id, trigger_kind, started_at, finished_at, success, error
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunID, &r.Trigger, &r.StartedAt, &r.FinishedAt, &r.Success, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		files, err := db.artifacts(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Files = files
	}
	return out, nil
}

// Last returns the most recent run, or apperr.ErrNotFound.
func (db *DB) Last(ctx context.Context) (*Run, error) {
	runs, err := db.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &runs[0], nil
}

// Counts returns run totals grouped by trigger and outcome.
func (db *DB) Counts(ctx context.Context) ([]Count, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT trigger_kind, success, COUNT(*) FROM runs GROUP BY trigger_kind, success ORDER BY trigger_kind, success
	`)
	if err != nil {
		return nil, fmt.Errorf("history: counts: %w", err)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		var ok bool
		if err := rows.Scan(&c.Trigger, &ok, &c.N); err != nil {
			return nil, fmt.Errorf("history: scan count: %w", err)
		}
		c.Outcome = "failure"
		if ok {
			c.Outcome = "success"
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) artifacts(ctx context.Context, run int64) ([]Artifact, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, checksum, size FROM artifacts WHERE run = ? ORDER BY rowid`, run)
	if err != nil {
		return nil, fmt.Errorf("history: artifacts: %w", err)
	}
	defer rows.Close()

	out := []Artifact{}
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Name, &a.Checksum, &a.Size); err != nil {
			return nil, fmt.Errorf("history: scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
