// Package store keeps sweep history in a local SQLite database so runs can
// be compared across invocations.
package store

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"simsweep/internal/results"
)

// Store wraps the sweep history database.
type Store struct {
	db   *sql.DB
	path string
}

// SweepRecord is one row of the sweeps table. Parameters preserves the sweep
// order of the parameter names so re-rendered reports match the original run.
type SweepRecord struct {
	ID         string
	Benchmark  string
	Parameters []string
	StartedAt  time.Time
	Duration   time.Duration
	Runs       int
	Failed     int
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	SweepID  string
	Label    string
	Values   map[string]int
	Failed   bool
	Attempts int
	Duration time.Duration
	Stats    map[string]float64
	Derived  map[string]float64
	Error    string
}

// Open opens (creating if necessary) the sweep history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sweeps (
		id TEXT PRIMARY KEY,
		benchmark TEXT NOT NULL,
		parameters_json TEXT NOT NULL DEFAULT '[]',
		started_at_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		runs INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sweep_id TEXT NOT NULL REFERENCES sweeps(id),
		label TEXT NOT NULL,
		values_json TEXT NOT NULL,
		failed INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		derived_json TEXT NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_sweep ON runs(sweep_id);
	CREATE INDEX IF NOT EXISTS idx_sweeps_benchmark ON sweeps(benchmark);
	`
	_, err := s.db.Exec(schema)
	return errors.Wrap(err, "failed to initialize schema")
}

// NewSweepID returns a fresh identifier for a sweep.
func NewSweepID() string {
	return uuid.New().String()
}

// RecordSweep persists the full result set of a finished sweep.
func (s *Store) RecordSweep(set *results.Set, startedAt time.Time, duration time.Duration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit
	parametersJSON, err := json.Marshal(set.Parameters)
	if err != nil {
		return errors.Wrap(err, "failed to marshal parameter names")
	}
	_, err = tx.Exec(
		`INSERT INTO sweeps (id, benchmark, parameters_json, started_at_ms, duration_ms, runs, failed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		set.SweepID, set.Benchmark, string(parametersJSON), startedAt.UnixMilli(), duration.Milliseconds(), len(set.Runs), set.Failed(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert sweep")
	}
	for _, run := range set.Runs {
		valuesJSON, err := json.Marshal(run.Values)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal values for %s", run.Label)
		}
		statsJSON, err := json.Marshal(run.Sim.Stats)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal stats for %s", run.Label)
		}
		derivedJSON, err := json.Marshal(run.Derived)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal derived metrics for %s", run.Label)
		}
		_, err = tx.Exec(
			`INSERT INTO runs (sweep_id, label, values_json, failed, attempts, duration_ms, stats_json, derived_json, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			set.SweepID, run.Label, string(valuesJSON), run.Sim.Failed, run.Sim.Attempts,
			run.Sim.Duration.Milliseconds(), string(statsJSON), string(derivedJSON), run.Sim.Error,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert run %s", run.Label)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit sweep")
}

// ListSweeps returns sweep records, most recent first. A benchmark filter of
// "" matches all benchmarks.
func (s *Store) ListSweeps(benchmark string, limit int) ([]SweepRecord, error) {
	query := `SELECT id, benchmark, parameters_json, started_at_ms, duration_ms, runs, failed FROM sweeps`
	var args []any
	if benchmark != "" {
		query += ` WHERE benchmark = ?`
		args = append(args, benchmark)
	}
	query += ` ORDER BY started_at_ms DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sweeps")
	}
	defer rows.Close()
	var records []SweepRecord
	for rows.Next() {
		var rec SweepRecord
		var parametersJSON string
		var startedMs, durationMs int64
		if err := rows.Scan(&rec.ID, &rec.Benchmark, &parametersJSON, &startedMs, &durationMs, &rec.Runs, &rec.Failed); err != nil {
			return nil, errors.Wrap(err, "failed to scan sweep")
		}
		if err := json.Unmarshal([]byte(parametersJSON), &rec.Parameters); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal parameter names for %s", rec.ID)
		}
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "failed to iterate sweeps")
}

// GetRuns returns the per-configuration records of one sweep.
func (s *Store) GetRuns(sweepID string) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT sweep_id, label, values_json, failed, attempts, duration_ms, stats_json, derived_json, error
		 FROM runs WHERE sweep_id = ? ORDER BY id`,
		sweepID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()
	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var valuesJSON, statsJSON, derivedJSON string
		var durationMs int64
		if err := rows.Scan(&rec.SweepID, &rec.Label, &valuesJSON, &rec.Failed, &rec.Attempts, &durationMs, &statsJSON, &derivedJSON, &rec.Error); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(valuesJSON), &rec.Values); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal values for %s", rec.Label)
		}
		if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal stats for %s", rec.Label)
		}
		if err := json.Unmarshal([]byte(derivedJSON), &rec.Derived); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal derived metrics for %s", rec.Label)
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "failed to iterate runs")
}
