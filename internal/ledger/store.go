// Package ledger keeps a local SQLite record of what was launched and of
// aggregated test results, so that a sweep can be traced back to the exact
// command lines that produced it.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/specialistvlad/unetgrid/internal/aggregate"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id           TEXT PRIMARY KEY,
	job          TEXT NOT NULL,
	mode         TEXT NOT NULL,
	dispatch     TEXT NOT NULL,
	lsf_job_id   TEXT,
	command      TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id      TEXT NOT NULL,
	dir           TEXT NOT NULL,
	tumble        TEXT NOT NULL,
	finetune      TEXT NOT NULL,
	transformed   TEXT NOT NULL,
	train_dataset TEXT NOT NULL,
	test_dataset  TEXT NOT NULL,
	depth         TEXT NOT NULL,
	sae           TEXT NOT NULL,
	time          TEXT NOT NULL,
	f1_score      TEXT NOT NULL,
	auc           TEXT NOT NULL,
	mean_iou      TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
`

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Launch is one recorded dispatch.
type Launch struct {
	ID        string
	Job       string
	Mode      string
	Dispatch  string
	LSFJobID  string
	Command   string
	CreatedAt time.Time
}

// Store manages the ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// Launch workers write concurrently; one connection serialises them.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordLaunch stores l, assigning an id and timestamp when unset, and
// returns the stored record.
func (s *Store) RecordLaunch(ctx context.Context, l Launch) (Launch, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO launches (id, job, mode, dispatch, lsf_job_id, command, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Job, l.Mode, l.Dispatch, l.LSFJobID, l.Command, l.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Launch{}, fmt.Errorf("record launch %s: %w", l.Job, err)
	}
	return l, nil
}

// ListLaunches returns the most recent launches first. A non-positive
// limit returns all of them.
func (s *Store) ListLaunches(ctx context.Context, limit int) ([]Launch, error) {
	query := `SELECT id, job, mode, dispatch, COALESCE(lsf_job_id, ''), command, created_at
	          FROM launches ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	defer rows.Close()

	var out []Launch
	for rows.Next() {
		var l Launch
		var created string
		if err := rows.Scan(&l.ID, &l.Job, &l.Mode, &l.Dispatch, &l.LSFJobID, &l.Command, &created); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		l.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse launch time %q: %w", created, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RecordResults stores one aggregation pass in a single transaction and
// returns the batch id shared by its rows.
func (s *Store) RecordResults(ctx context.Context, results []aggregate.Row) (string, error) {
	batchID := uuid.New().String()
	created := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (batch_id, dir, tumble, finetune, transformed, train_dataset, test_dataset,
		                      depth, sae, time, f1_score, auc, mean_iou, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		args := []any{batchID, r.Dir}
		for _, v := range r.Record() {
			args = append(args, v)
		}
		args = append(args, created)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.Dir, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return batchID, nil
}

// Results returns the rows of one batch as records in aggregate.Header
// order, each prefixed by its directory.
func (s *Store) Results(ctx context.Context, batchID string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dir, tumble, finetune, transformed, train_dataset, test_dataset, depth, sae,
		        time, f1_score, auc, mean_iou
		 FROM results WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		rec := make([]string, 1+len(aggregate.Header))
		ptrs := make([]any, len(rec))
		for i := range rec {
			ptrs[i] = &rec[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
