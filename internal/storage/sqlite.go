//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) (Run, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, err
	}

	run = newRun(run)
	if err := putRun(ctx, db, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *SQLiteStore) AppendIteration(ctx context.Context, runID string, rec IterationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	if _, ok, err := getRun(ctx, db, runID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO iterations (run_id, iter, j, grad_norm, evaluations, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, iter) DO UPDATE SET
			j = excluded.j,
			grad_norm = excluded.grad_norm,
			evaluations = excluded.evaluations,
			elapsed_ns = excluded.elapsed_ns
	`, runID, rec.Iter, rec.J, rec.GradNorm, rec.Evaluations, int64(rec.Elapsed))
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, result RunResult) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	run, ok, err := getRun(ctx, db, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return putRun(ctx, db, finish(run, result))
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}
	return getRun(ctx, db, id)
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) GetIterations(ctx context.Context, runID string) ([]IterationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	if _, ok, err := getRun(ctx, db, runID); err != nil || !ok {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT iter, j, grad_norm, evaluations, elapsed_ns
		FROM iterations WHERE run_id = ? ORDER BY iter
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	recs := []IterationRecord{}
	for rows.Next() {
		var (
			rec     IterationRecord
			elapsed int64
		)
		if err := rows.Scan(&rec.Iter, &rec.J, &rec.GradNorm, &rec.Evaluations, &elapsed); err != nil {
			return nil, false, err
		}
		rec.Elapsed = time.Duration(elapsed)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func putRun(ctx context.Context, db *sql.DB, run Run) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			payload = excluded.payload
	`, run.ID, run.StartedAt.UnixNano(), payload)
	return err
}

func getRun(ctx context.Context, db *sql.DB, id string) (Run, bool, error) {
	var payload []byte
	err := db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return Run{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL,
			iter INTEGER NOT NULL,
			j REAL NOT NULL,
			grad_norm REAL NOT NULL,
			evaluations INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			PRIMARY KEY (run_id, iter)
		);
	`)
	return err
}
