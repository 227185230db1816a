package results

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"simsweep/internal/config"
	"simsweep/internal/sim"
)

func testSet(t *testing.T, metrics []config.Metric) *Set {
	t.Helper()
	sweep := config.Sweep{
		Benchmark: "aha-mont64",
		Parameters: []config.Parameter{
			{Name: "DMA_INFLIGHT_REQUESTS", Values: []int{1, 4}},
		},
		Metrics: metrics,
	}
	set := NewSet("test-sweep", sweep.Benchmark, []string{"DMA_INFLIGHT_REQUESTS"}, metrics)
	configs := sweep.Configs()
	set.Add(configs[0], sim.Result{
		Label:    configs[0].Label(),
		Attempts: 1,
		Duration: 2 * time.Second,
		Stats:    map[string]float64{"cycles": 2000, "instructions": 1000},
	})
	set.Add(configs[1], sim.Result{
		Label:    configs[1].Label(),
		Attempts: 2,
		Duration: time.Second,
		Stats:    map[string]float64{"cycles": 1000, "instructions": 1000},
	})
	return set
}

func TestStatNames(t *testing.T) {
	set := testSet(t, nil)
	assert.Equal(t, []string{"cycles", "instructions"}, set.StatNames())
}

func TestDerive(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "ipc", Expression: "instructions / cycles"}})
	err := set.Derive()
	assert.NoError(t, err)
	assert.InDelta(t, 0.5, set.Runs[0].Derived["ipc"], 1e-9)
	assert.InDelta(t, 1.0, set.Runs[1].Derived["ipc"], 1e-9)
}

func TestDeriveParameterVariable(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "cycles_per_req", Expression: "cycles / DMA_INFLIGHT_REQUESTS"}})
	err := set.Derive()
	assert.NoError(t, err)
	assert.InDelta(t, 2000.0, set.Runs[0].Derived["cycles_per_req"], 1e-9)
	assert.InDelta(t, 250.0, set.Runs[1].Derived["cycles_per_req"], 1e-9)
}

func TestDeriveUnknownVariable(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "bad", Expression: "cycles / bogus_stat"}})
	err := set.Derive()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_stat")
}

func TestDeriveRunMissingStat(t *testing.T) {
	// one run didn't report instructions; the metric is absent for that run
	// but the set still derives for the others
	set := testSet(t, []config.Metric{{Name: "ipc", Expression: "instructions / cycles"}})
	delete(set.Runs[0].Sim.Stats, "instructions")
	err := set.Derive()
	assert.NoError(t, err)
	assert.NotContains(t, set.Runs[0].Derived, "ipc")
	assert.InDelta(t, 1.0, set.Runs[1].Derived["ipc"], 1e-9)
}

func TestColumnsMetricShadowsStat(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "cycles", Expression: "cycles * 1"}})
	assert.Equal(t, []string{"cycles", "instructions"}, set.columns())
}

func TestDeriveSkipsFailedRuns(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "ipc", Expression: "instructions / cycles"}})
	set.Runs[1].Sim.Failed = true
	err := set.Derive()
	assert.NoError(t, err)
	assert.NotContains(t, set.Runs[1].Derived, "ipc")
}

func TestGeomean(t *testing.T) {
	set := testSet(t, nil)
	v, ok := set.Geomean("cycles")
	assert.True(t, ok)
	assert.InDelta(t, 1414.2135, v, 0.001)
	_, ok = set.Geomean("missing")
	assert.False(t, ok)
}

func TestGeomeanIgnoresFailedRuns(t *testing.T) {
	set := testSet(t, nil)
	set.Runs[0].Sim.Failed = true
	v, ok := set.Geomean("cycles")
	assert.True(t, ok)
	assert.InDelta(t, 1000.0, v, 1e-9)
}

func TestRenderText(t *testing.T) {
	set := testSet(t, []config.Metric{{Name: "ipc", Expression: "instructions / cycles"}})
	err := set.Derive()
	assert.NoError(t, err)
	var buf bytes.Buffer
	err = set.RenderText(&buf)
	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "aha-mont64")
	assert.Contains(t, out, "DMA_INFLIGHT_REQUESTS_1")
	assert.Contains(t, out, "DMA_INFLIGHT_REQUESTS_4")
	assert.Contains(t, out, "2,000") // thousands separator
	assert.Contains(t, out, "geomean")
	assert.Contains(t, out, "ipc")
}

func TestRenderTextFailedRun(t *testing.T) {
	set := testSet(t, nil)
	set.Runs[1].Sim.Failed = true
	var buf bytes.Buffer
	err := set.RenderText(&buf)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "failed")
}

func TestRenderCSV(t *testing.T) {
	set := testSet(t, nil)
	var buf bytes.Buffer
	err := set.RenderCSV(&buf)
	assert.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Equal(t, "benchmark,configuration,status,attempts,duration_s,cycles,instructions", string(lines[0]))
	assert.Contains(t, string(lines[1]), "aha-mont64,DMA_INFLIGHT_REQUESTS_1,ok,1,2.000,2000,1000")
}

func TestWriteXlsx(t *testing.T) {
	set := testSet(t, nil)
	path := filepath.Join(t.TempDir(), "sweep.xlsx")
	err := set.WriteXlsx(path)
	assert.NoError(t, err)
	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	f, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	defer f.Close()
	label, err := f.GetCellValue(xlsxSheetName, "A4")
	assert.NoError(t, err)
	assert.Equal(t, "DMA_INFLIGHT_REQUESTS_1", label)
}
