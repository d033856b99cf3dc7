// Package history persists probe runs to a local SQLite database so results
// can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/leslieo2/go-api-probe/internal/runner"
)

// timeLayout has fixed-width fractional seconds so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// RunRecord is one stored run.
type RunRecord struct {
	RunID       string
	Target      string
	StartedAt   time.Time
	Duration    time.Duration
	Passed      int
	Failed      int
	SuccessRate float64
}

// CheckRecord is one stored check result.
type CheckRecord struct {
	Name     string
	Passed   bool
	Reason   string
	Duration time.Duration
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		success_rate REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);

	CREATE TABLE IF NOT EXISTS check_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		passed INTEGER NOT NULL,
		reason TEXT,
		duration_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON check_results(run_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run summary and its check results in one transaction.
func (s *Store) SaveRun(ctx context.Context, summary *runner.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, target, started_at, duration_ns, passed, failed, success_rate)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Target,
		summary.StartedAt.UTC().Format(timeLayout),
		int64(summary.Duration),
		summary.Passed,
		summary.Failed,
		summary.SuccessRate(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO check_results (run_id, position, name, passed, reason, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range summary.Results {
		if _, err := stmt.ExecContext(ctx, summary.RunID, i, r.Name, r.Passed, r.Reason(), int64(r.Duration)); err != nil {
			return fmt.Errorf("failed to insert result %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", summary.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT run_id, target, started_at, duration_ns, passed, failed, success_rate
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec       RunRecord
			startedAt string
			duration  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Target, &startedAt, &duration, &rec.Passed, &rec.Failed, &rec.SuccessRate); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", rec.RunID, err)
		}
		rec.Duration = time.Duration(duration)
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// CheckResults returns the stored results of one run in execution order.
func (s *Store) CheckResults(ctx context.Context, runID string) ([]CheckRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT name, passed, reason, duration_ns
	FROM check_results
	WHERE run_id = ?
	ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var results []CheckRecord
	for rows.Next() {
		var (
			rec      CheckRecord
			reason   sql.NullString
			duration int64
		)
		if err := rows.Scan(&rec.Name, &rec.Passed, &reason, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Reason = reason.String
		rec.Duration = time.Duration(duration)
		results = append(results, rec)
	}

	return results, rows.Err()
}
