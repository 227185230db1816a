package sim

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"regexp"
	"strconv"
	"strings"
)

// stats lines look like "cycles: 1234567" or "sim_seconds: 42.5"; the name is
// a C-style identifier, the value a float-parseable number. Anything else in
// the simulator log is ignored.
var statLineRegex = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(-?[0-9][0-9_,]*(?:\.[0-9]+)?)\s*$`)

// ParseStats extracts named statistics from simulator output. Later
// occurrences of a name overwrite earlier ones: simulators often print
// running values and the final line wins.
func ParseStats(output string) map[string]float64 {
	stats := make(map[string]float64)
	for _, line := range strings.Split(output, "\n") {
		match := statLineRegex.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		// tolerate thousands separators in simulator summaries
		raw := strings.NewReplacer(",", "", "_", "").Replace(match[2])
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		stats[match[1]] = value
	}
	return stats
}
