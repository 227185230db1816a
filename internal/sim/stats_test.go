package sim

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStats(t *testing.T) {
	output := `Chronologic VCS simulator
info: loading aha-mont64.DMA_INFLIGHT_REQUESTS_4.elf
cycles: 1,234,567
instret: 987654
dma_requests: 256
sim_seconds: 42.5
$finish called
`
	stats := ParseStats(output)
	assert.Equal(t, 1234567.0, stats["cycles"])
	assert.Equal(t, 987654.0, stats["instret"])
	assert.Equal(t, 256.0, stats["dma_requests"])
	assert.Equal(t, 42.5, stats["sim_seconds"])
	assert.Len(t, stats, 4)
}

func TestParseStatsLastValueWins(t *testing.T) {
	stats := ParseStats("cycles: 100\ncycles: 200\n")
	assert.Equal(t, 200.0, stats["cycles"])
}

func TestParseStatsIgnoresNoise(t *testing.T) {
	output := `Warning-[LINX_KRNL] License expires in 10 days
V C S   S i m u l a t i o n   R e p o r t
Time: 123456 ns
CPU Time:      7.820 seconds;       Data structure size:   1.3Mb
ratio: 1.2.3
url: http://example.com:8080
`
	stats := ParseStats(output)
	assert.Empty(t, stats)
}

func TestParseStatsUnderscoreSeparators(t *testing.T) {
	stats := ParseStats("cycles: 1_000_000")
	assert.Equal(t, 1000000.0, stats["cycles"])
}

func TestParseStatsEmpty(t *testing.T) {
	assert.Empty(t, ParseStats(""))
}
