package build

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsweep/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	saved := struct {
		configFile string
		suiteDir   string
		param      string
		values     []int
	}{flagConfigFile, flagSuiteDir, flagParam, flagValues}
	t.Cleanup(func() {
		flagConfigFile = saved.configFile
		flagSuiteDir = saved.suiteDir
		flagParam = saved.param
		flagValues = saved.values
	})
	flagConfigFile = ""
	flagSuiteDir = ""
	flagParam = ""
	flagValues = nil
}

func writeSweepFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestAssembleSweepPositionalBenchmark(t *testing.T) {
	resetFlags(t)
	flagValues = []int{1, 4}
	sweep, err := assembleSweep(Cmd, []string{"crc32"})
	require.NoError(t, err)
	assert.Equal(t, "crc32", sweep.Benchmark)
	require.Len(t, sweep.Parameters, 1)
	assert.Equal(t, config.DefaultParameterName, sweep.Parameters[0].Name)
}

func TestAssembleSweepValuesAmbiguousWithMultipleParameters(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	flagConfigFile = writeSweepFile(t, `
benchmark: aha-mont64
suite_dir: `+dir+`
parameters:
  - name: DMA_INFLIGHT_REQUESTS
    values: [1, 2]
  - name: NUM_WAYS
    values: [2, 4]
`)
	flagValues = []int{4, 8}
	_, err := assembleSweep(Cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestAssembleSweepValuesOverrideSingleParameter(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	flagConfigFile = writeSweepFile(t, `
benchmark: aha-mont64
suite_dir: `+dir+`
parameters:
  - name: NUM_WAYS
    values: [1, 2]
`)
	flagValues = []int{4, 8}
	sweep, err := assembleSweep(Cmd, nil)
	require.NoError(t, err)
	require.Len(t, sweep.Parameters, 1)
	assert.Equal(t, "NUM_WAYS", sweep.Parameters[0].Name)
	assert.Equal(t, []int{4, 8}, sweep.Parameters[0].Values)
}
