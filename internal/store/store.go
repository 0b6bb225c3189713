// Package store persists training runs to SQLite: one row per run plus the
// full loss curve and the extracted definitions, so runs can be compared
// after the fact.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
	"gopkg.in/yaml.v3"

	"difflog/internal/config"
	"difflog/internal/train"
)

// Store wraps the run database.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at the given path, creating the
// parent directory and the schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		problem    TEXT NOT NULL,
		config     TEXT NOT NULL,
		steps      INTEGER NOT NULL,
		final_loss REAL NOT NULL,
		stopped    INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS loss_curve (
		run_id TEXT NOT NULL,
		step   INTEGER NOT NULL,
		loss   REAL NOT NULL,
		PRIMARY KEY (run_id, step)
	);
	CREATE TABLE IF NOT EXISTS definitions (
		run_id         TEXT NOT NULL,
		position       INTEGER NOT NULL,
		predicate      TEXT NOT NULL,
		clause         TEXT NOT NULL,
		confidence     REAL NOT NULL,
		low_confidence INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRun writes one training result together with the configuration that
// produced it. The run row, its loss curve, and its definitions land in a
// single transaction.
func (s *Store) SaveRun(problem string, cfg config.Training, res *train.Result) error {
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize config for %s: %w", res.RunID, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, problem, config, steps, final_loss, stopped) VALUES (?, ?, ?, ?, ?, ?)`,
		res.RunID, problem, string(cfgYAML), res.Steps, res.FinalLoss, res.Stopped,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	for step, loss := range res.Losses {
		if _, err := tx.Exec(
			`INSERT INTO loss_curve (run_id, step, loss) VALUES (?, ?, ?)`,
			res.RunID, step, loss,
		); err != nil {
			return fmt.Errorf("save loss curve for %s: %w", res.RunID, err)
		}
	}
	for i, def := range res.Program {
		if _, err := tx.Exec(
			`INSERT INTO definitions (run_id, position, predicate, clause, confidence, low_confidence) VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID, i, def.Pred.String(), def.Clause.String(), def.Confidence, def.LowConfidence,
		); err != nil {
			return fmt.Errorf("save definitions for %s: %w", res.RunID, err)
		}
	}
	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID     string
	Problem   string
	Steps     int
	FinalLoss float64
	Stopped   bool
	CreatedAt time.Time
}

// ListRuns returns the saved runs, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT run_id, problem, steps, final_loss, stopped, created_at FROM runs ORDER BY created_at DESC, run_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Problem, &r.Steps, &r.FinalLoss, &r.Stopped, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Config returns the YAML-serialized training configuration of one run.
func (s *Store) Config(runID string) (config.Training, error) {
	var raw string
	err := s.db.QueryRow(`SELECT config FROM runs WHERE run_id = ?`, runID).Scan(&raw)
	if err != nil {
		return config.Training{}, fmt.Errorf("load config for %s: %w", runID, err)
	}
	var cfg config.Training
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return config.Training{}, fmt.Errorf("parse stored config for %s: %w", runID, err)
	}
	return cfg, nil
}

// Definitions returns the extracted program of one run in extraction order.
func (s *Store) Definitions(runID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT clause, confidence FROM definitions WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load definitions for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var clause string
		var confidence float64
		if err := rows.Scan(&clause, &confidence); err != nil {
			return nil, fmt.Errorf("scan definition row: %w", err)
		}
		out = append(out, fmt.Sprintf("%s (confidence %.3f)", clause, confidence))
	}
	return out, rows.Err()
}

// LossCurve returns one run's per-step monitoring loss.
func (s *Store) LossCurve(runID string) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT loss FROM loss_curve WHERE run_id = ? ORDER BY step`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load loss curve for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var loss float64
		if err := rows.Scan(&loss); err != nil {
			return nil, fmt.Errorf("scan loss row: %w", err)
		}
		out = append(out, loss)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
