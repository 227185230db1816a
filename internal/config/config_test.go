package config

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSweepFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestLoad(t *testing.T) {
	path := writeSweepFile(t, `
benchmark: aha-mont64
suite_dir: /work/embench
parameters:
  - name: DMA_INFLIGHT_REQUESTS
    values: [1, 2, 4, 8]
jobs: 2
retries: 1
sim:
  dir: /work/vcs
  target: run
  timeout: 1800
  vars:
    WAVES: "0"
metrics:
  - name: cycles_per_req
    expression: cycles / dma_requests
`)
	sweep, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "aha-mont64", sweep.Benchmark)
	assert.Equal(t, "/work/embench", sweep.SuiteDir)
	assert.Equal(t, 2, sweep.Jobs)
	assert.Equal(t, 1, sweep.Retries)
	assert.Equal(t, 1800, sweep.Sim.Timeout)
	assert.Equal(t, "0", sweep.Sim.Vars["WAVES"])
	require.Len(t, sweep.Parameters, 1)
	assert.Equal(t, []int{1, 2, 4, 8}, sweep.Parameters[0].Values)
	require.Len(t, sweep.Metrics, 1)
	assert.Equal(t, "cycles / dma_requests", sweep.Metrics[0].Expression)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeSweepFile(t, "benchmark: foo\nbogus_field: 1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	sweep := &Sweep{Benchmark: "aha-mont64", SuiteDir: "/work/embench"}
	sweep.Sim.Dir = "/work/vcs"
	sweep.ApplyDefaults()
	require.Len(t, sweep.Parameters, 1)
	assert.Equal(t, DefaultParameterName, sweep.Parameters[0].Name)
	assert.Equal(t, []int{1}, sweep.Parameters[0].Values)
	assert.Equal(t, "cmake", sweep.CMake)
	assert.Equal(t, "run", sweep.Sim.MakeTarget)
	assert.Equal(t, 1, sweep.Jobs) // one config -> one job
	require.NoError(t, sweep.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Sweep {
		s := &Sweep{
			Benchmark:  "aha-mont64",
			SuiteDir:   "/work/embench",
			Parameters: []Parameter{{Name: DefaultParameterName, Values: []int{1, 2}}},
			Jobs:       2,
		}
		s.Sim.Dir = "/work/vcs"
		return s
	}

	tests := []struct {
		name    string
		mutate  func(*Sweep)
		wantErr string
	}{
		{"valid", func(s *Sweep) {}, ""},
		{"missing benchmark", func(s *Sweep) { s.Benchmark = "" }, "benchmark name is required"},
		{"missing suite dir", func(s *Sweep) { s.SuiteDir = "" }, "suite directory is required"},
		{"missing sim dir", func(s *Sweep) { s.Sim.Dir = "" }, "simulator directory is required"},
		{"zero jobs", func(s *Sweep) { s.Jobs = 0 }, "jobs must be positive"},
		{"negative retries", func(s *Sweep) { s.Retries = -1 }, "retries must not be negative"},
		{"duplicate values", func(s *Sweep) { s.Parameters[0].Values = []int{4, 4} }, "duplicate value"},
		{"duplicate parameter", func(s *Sweep) {
			s.Parameters = append(s.Parameters, Parameter{Name: DefaultParameterName, Values: []int{1}})
		}, "duplicate parameter name"},
		{"bad parameter name", func(s *Sweep) { s.Parameters[0].Name = "DMA INFLIGHT" }, "invalid characters"},
		{"bad metric expression", func(s *Sweep) {
			s.Metrics = []Metric{{Name: "broken", Expression: "cycles /"}}
		}, "invalid expression"},
		{"duplicate metric", func(s *Sweep) {
			s.Metrics = []Metric{{Name: "m", Expression: "cycles"}, {Name: "m", Expression: "instret"}}
		}, "duplicate metric name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweep := base()
			tt.mutate(sweep)
			err := sweep.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigsCrossProduct(t *testing.T) {
	sweep := &Sweep{
		Parameters: []Parameter{
			{Name: "DMA_INFLIGHT_REQUESTS", Values: []int{1, 4}},
			{Name: "DMA_BURST_LEN", Values: []int{16, 64}},
		},
	}
	configs := sweep.Configs()
	require.Len(t, configs, 4)
	// last parameter varies fastest
	assert.Equal(t, "DMA_INFLIGHT_REQUESTS_1__DMA_BURST_LEN_16", configs[0].Label())
	assert.Equal(t, "DMA_INFLIGHT_REQUESTS_1__DMA_BURST_LEN_64", configs[1].Label())
	assert.Equal(t, "DMA_INFLIGHT_REQUESTS_4__DMA_BURST_LEN_16", configs[2].Label())
	assert.Equal(t, "DMA_INFLIGHT_REQUESTS_4__DMA_BURST_LEN_64", configs[3].Label())
}

func TestConfigDefineArgsAndValues(t *testing.T) {
	cfg := Config{Assignments: []Assignment{
		{Name: "DMA_INFLIGHT_REQUESTS", Value: 8},
		{Name: "DMA_BURST_LEN", Value: 64},
	}}
	assert.Equal(t, []string{"-DDMA_INFLIGHT_REQUESTS=8", "-DDMA_BURST_LEN=64"}, cfg.DefineArgs())
	assert.Equal(t, map[string]int{"DMA_INFLIGHT_REQUESTS": 8, "DMA_BURST_LEN": 64}, cfg.Values())
}

func TestSingleElementSweepIsValid(t *testing.T) {
	sweep := &Sweep{
		Benchmark:  "aha-mont64",
		SuiteDir:   "/work/embench",
		Parameters: []Parameter{{Name: DefaultParameterName, Values: []int{4}}},
		Jobs:       1,
	}
	sweep.Sim.Dir = "/work/vcs"
	require.NoError(t, sweep.Validate())
	assert.Len(t, sweep.Configs(), 1)
}
