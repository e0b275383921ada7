// Package manifest persists the answer key of a defect run: which cells were
// changed, from what, to what.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/wdm0006/smudge/pkg/defect"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	catalog     TEXT NOT NULL,
	source      TEXT NOT NULL,
	output      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	defects     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS defects (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	step         INTEGER NOT NULL,
	category     TEXT NOT NULL,
	kind         TEXT NOT NULL,
	column_name  TEXT NOT NULL,
	row_id       INTEGER NOT NULL,
	before_value TEXT,
	after_value  TEXT
);
CREATE INDEX IF NOT EXISTS defects_run ON defects(run_id, step);
`

// Run describes one injection run.
type Run struct {
	ID        string
	Catalog   string
	Source    string
	Output    string
	StartedAt time.Time
	Rows      int
	Defects   int
}

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

type runRow struct {
	ID        string `db:"id"`
	Catalog   string `db:"catalog"`
	Source    string `db:"source"`
	Output    string `db:"output"`
	StartedAt string `db:"started_at"`
	Rows      int    `db:"row_count"`
	Defects   int    `db:"defects"`
}

type defectRow struct {
	RunID    string         `db:"run_id"`
	Step     int            `db:"step"`
	Category string         `db:"category"`
	Kind     string         `db:"kind"`
	Column   string         `db:"column_name"`
	RowID    int64          `db:"row_id"`
	Before   sql.NullString `db:"before_value"`
	After    sql.NullString `db:"after_value"`
}

type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the SQLite manifest at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create manifest tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes the run and all of its records in one transaction. An empty
// run ID is filled in with NewRunID; Defects is set from len(records).
func (s *Store) Save(ctx context.Context, run Run, records []defect.Record) (Run, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Defects = len(records)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return run, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO runs (id, catalog, source, output, started_at, row_count, defects)
		VALUES (:id, :catalog, :source, :output, :started_at, :row_count, :defects)`, runRow{
		ID:        run.ID,
		Catalog:   run.Catalog,
		Source:    run.Source,
		Output:    run.Output,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339Nano),
		Rows:      run.Rows,
		Defects:   run.Defects,
	})
	if err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO defects (run_id, step, category, kind, column_name, row_id, before_value, after_value)
		VALUES (:run_id, :step, :category, :kind, :column_name, :row_id, :before_value, :after_value)`)
	if err != nil {
		return run, fmt.Errorf("prepare defect insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range records {
		row := defectRow{
			RunID:    run.ID,
			Step:     r.Step,
			Category: r.Category,
			Kind:     r.Kind,
			Column:   r.Column,
			RowID:    r.RowID,
			Before:   sql.NullString{String: r.Before, Valid: !r.BeforeNull},
			After:    sql.NullString{String: r.After, Valid: !r.AfterNull},
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return run, fmt.Errorf("insert defect: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return run, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// Runs lists every stored run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY started_at DESC, id`); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	out := make([]Run, len(rows))
	for i, r := range rows {
		run, err := r.run()
		if err != nil {
			return nil, err
		}
		out[i] = run
	}
	return out, nil
}

// Run returns a single run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var r runRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("select run: %w", err)
	}
	return r.run()
}

// Records returns the records of a run in step and row id order.
func (s *Store) Records(ctx context.Context, runID string) ([]defect.Record, error) {
	var rows []defectRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM defects WHERE run_id = ? ORDER BY step, row_id`, runID); err != nil {
		return nil, fmt.Errorf("select defects: %w", err)
	}
	out := make([]defect.Record, len(rows))
	for i, r := range rows {
		out[i] = defect.Record{
			Step:       r.Step,
			Category:   r.Category,
			Kind:       r.Kind,
			Column:     r.Column,
			RowID:      r.RowID,
			Before:     r.Before.String,
			BeforeNull: !r.Before.Valid,
			After:      r.After.String,
			AfterNull:  !r.After.Valid,
		}
	}
	return out, nil
}

// Counts returns the number of records per category for a run.
func (s *Store) Counts(ctx context.Context, runID string) (map[string]int, error) {
	var rows []struct {
		Category string `db:"category"`
		N        int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT category, COUNT(*) AS n FROM defects WHERE run_id = ? GROUP BY category`, runID); err != nil {
		return nil, fmt.Errorf("count defects: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Category] = r.N
	}
	return out, nil
}

func (r runRow) run() (Run, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad started_at %q: %w", r.ID, r.StartedAt, err)
	}
	return Run{ID: r.ID, Catalog: r.Catalog, Source: r.Source, Output: r.Output, StartedAt: ts, Rows: r.Rows, Defects: r.Defects}, nil
}
