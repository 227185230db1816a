// Package results aggregates simulator statistics across a sweep and renders
// them as text, CSV, and xlsx reports.
package results

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"

	"simsweep/internal/config"
	"simsweep/internal/sim"
	"simsweep/internal/util"
)

// Run is the outcome of one configuration: the simulator result plus the
// parameter values that produced it and any derived metric values.
type Run struct {
	Label   string
	Values  map[string]int
	Sim     sim.Result
	Derived map[string]float64
}

// Set holds all runs from one sweep in configuration order.
type Set struct {
	SweepID    string
	Benchmark  string
	Parameters []string // parameter names in sweep order
	Metrics    []config.Metric
	Runs       []Run
}

func NewSet(sweepID string, benchmark string, parameters []string, metrics []config.Metric) *Set {
	return &Set{
		SweepID:    sweepID,
		Benchmark:  benchmark,
		Parameters: parameters,
		Metrics:    metrics,
	}
}

// Add records the result for one configuration.
func (s *Set) Add(cfg config.Config, res sim.Result) {
	s.Runs = append(s.Runs, Run{
		Label:  cfg.Label(),
		Values: cfg.Values(),
		Sim:    res,
	})
}

// StatNames returns the sorted union of statistic names reported by the
// succeeded runs.
func (s *Set) StatNames() []string {
	names := mapset.NewSet[string]()
	for _, run := range s.Runs {
		for name := range run.Sim.Stats {
			names.Add(name)
		}
	}
	sorted := names.ToSlice()
	sort.Strings(sorted)
	return sorted
}

// Derive evaluates the sweep's metric expressions against every succeeded
// run. Expression variables may reference simulator statistics and sweep
// parameter names. A variable no run in the set provides is an error; a run
// that merely didn't report a referenced statistic records the metric as
// absent so the rest of the sweep still renders.
func (s *Set) Derive() error {
	if len(s.Metrics) == 0 {
		return nil
	}
	known := mapset.NewSet[string](s.StatNames()...)
	known.Append(s.Parameters...)
	for _, metric := range s.Metrics {
		expression, err := govaluate.NewEvaluableExpression(metric.Expression)
		if err != nil {
			return fmt.Errorf("failed to parse metric %s: %w", metric.Name, err)
		}
		vars := mapset.NewSet[string](expression.Vars()...)
		if unknown := vars.Difference(known); unknown.Cardinality() > 0 {
			names := unknown.ToSlice()
			sort.Strings(names)
			return fmt.Errorf("metric %s references unknown variables: %v", metric.Name, names)
		}
		for i := range s.Runs {
			run := &s.Runs[i]
			if run.Sim.Failed {
				continue
			}
			parameters := make(map[string]any, len(run.Sim.Stats)+len(run.Values))
			available := mapset.NewSet[string]()
			for name, value := range run.Sim.Stats {
				parameters[name] = value
				available.Add(name)
			}
			for name, value := range run.Values {
				parameters[name] = float64(value)
				available.Add(name)
			}
			if missing := vars.Difference(available); missing.Cardinality() > 0 {
				names := missing.ToSlice()
				sort.Strings(names)
				slog.Warn("run missing statistics for metric",
					slog.String("config", run.Label),
					slog.String("metric", metric.Name),
					slog.String("missing", strings.Join(names, ",")))
				continue
			}
			result, err := expression.Evaluate(parameters)
			if err != nil {
				return fmt.Errorf("failed to evaluate metric %s for %s: %w", metric.Name, run.Label, err)
			}
			value, ok := result.(float64)
			if !ok {
				return fmt.Errorf("metric %s for %s is not numeric: %v", metric.Name, run.Label, result)
			}
			if run.Derived == nil {
				run.Derived = make(map[string]float64, len(s.Metrics))
			}
			run.Derived[metric.Name] = value
		}
	}
	return nil
}

// Geomean returns the geometric mean of the named statistic or derived
// metric across the succeeded runs, and false when no run reports it.
func (s *Set) Geomean(name string) (float64, bool) {
	var vals []float64
	for _, run := range s.Runs {
		if run.Sim.Failed {
			continue
		}
		if v, ok := run.Sim.Stats[name]; ok {
			vals = append(vals, v)
		} else if v, ok := run.Derived[name]; ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return util.GeoMean(vals), true
}

// Failed reports how many runs in the set failed.
func (s *Set) Failed() int {
	count := 0
	for _, run := range s.Runs {
		if run.Sim.Failed {
			count++
		}
	}
	return count
}

// columns returns the value column names in render order: statistics first,
// then derived metrics. A metric that shadows a statistic name renders in
// the statistic's column rather than twice.
func (s *Set) columns() []string {
	cols := s.StatNames()
	for _, metric := range s.Metrics {
		cols = util.UniqueAppend(cols, metric.Name)
	}
	return cols
}

// value looks up a column value for a run, checking statistics before derived
// metrics.
func (r *Run) value(column string) (float64, bool) {
	if v, ok := r.Sim.Stats[column]; ok {
		return v, true
	}
	v, ok := r.Derived[column]
	return v, ok
}
