/*
Package config loads and validates the sweep definition: the benchmark under
test, the simulator, the swept build parameters, and the derived metrics.
*/
package config

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v2"

	"simsweep/internal/util"
)

// DefaultParameterName is the canonical swept build parameter: the number of
// outstanding DMA transactions the benchmark firmware issues concurrently.
const DefaultParameterName = "DMA_INFLIGHT_REQUESTS"

// Parameter is one swept build parameter and the values it takes.
type Parameter struct {
	Name   string `yaml:"name"`
	Values []int  `yaml:"values"`
}

// Sim describes how the simulator is invoked. VCS sits behind a Makefile in
// the simulator directory; simsweep never runs the simulator binary directly.
type Sim struct {
	Dir        string            `yaml:"dir"`
	MakeTarget string            `yaml:"target"`
	Timeout    int               `yaml:"timeout"` // seconds, zero means none
	Vars       map[string]string `yaml:"vars"`    // extra VAR=value make arguments
}

// Metric defines a derived metric computed from collected simulation stats,
// e.g., cycles / dma_requests.
type Metric struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Sweep is the full sweep definition, typically loaded from a YAML file and
// then overridden by command-line flags.
type Sweep struct {
	Benchmark  string      `yaml:"benchmark"`
	SuiteDir   string      `yaml:"suite_dir"`
	CMake      string      `yaml:"cmake"`      // cmake executable, default "cmake"
	CMakeArgs  []string    `yaml:"cmake_args"` // extra configure arguments
	Parameters []Parameter `yaml:"parameters"`
	Jobs       int         `yaml:"jobs"`
	Retries    int         `yaml:"retries"`
	FailFast   bool        `yaml:"fail_fast"`
	Sim        Sim         `yaml:"sim"`
	Metrics    []Metric    `yaml:"metrics"`
}

// Load reads a sweep definition from a YAML file.
func Load(path string) (*Sweep, error) {
	expanded, err := util.AbsPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand sweep file path: %w", err)
	}
	data, err := os.ReadFile(expanded) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file: %w", err)
	}
	var sweep Sweep
	if err := yaml.UnmarshalStrict(data, &sweep); err != nil {
		return nil, fmt.Errorf("failed to parse sweep file %s: %w", path, err)
	}
	return &sweep, nil
}

// ApplyDefaults fills in unset fields. Call after flag overrides have been
// applied and before Validate.
func (s *Sweep) ApplyDefaults() {
	if len(s.Parameters) == 0 {
		s.Parameters = []Parameter{{Name: DefaultParameterName, Values: []int{1}}}
	}
	for i := range s.Parameters {
		if len(s.Parameters[i].Values) == 0 {
			s.Parameters[i].Values = []int{1}
		}
	}
	if s.CMake == "" {
		s.CMake = "cmake"
	}
	if s.Sim.MakeTarget == "" {
		s.Sim.MakeTarget = "run"
	}
	if s.Jobs == 0 {
		s.Jobs = min(4, len(s.Configs()))
	}
}

// Validate checks the sweep definition for errors that would otherwise only
// surface mid-sweep.
func (s *Sweep) Validate() error {
	if s.Benchmark == "" {
		return fmt.Errorf("benchmark name is required")
	}
	if s.SuiteDir == "" {
		return fmt.Errorf("benchmark suite directory is required")
	}
	if s.Sim.Dir == "" {
		return fmt.Errorf("simulator directory is required")
	}
	if s.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive, got %d", s.Jobs)
	}
	if s.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", s.Retries)
	}
	if s.Sim.Timeout < 0 {
		return fmt.Errorf("simulator timeout must not be negative, got %d", s.Sim.Timeout)
	}
	paramNames := mapset.NewSet[string]()
	for _, param := range s.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name must not be empty")
		}
		if strings.ContainsAny(param.Name, " \t=") {
			return fmt.Errorf("parameter name %q contains invalid characters", param.Name)
		}
		if !paramNames.Add(param.Name) {
			return fmt.Errorf("duplicate parameter name: %s", param.Name)
		}
		values := mapset.NewSet[int]()
		for _, value := range param.Values {
			if !values.Add(value) {
				return fmt.Errorf("duplicate value %d for parameter %s", value, param.Name)
			}
		}
	}
	metricNames := mapset.NewSet[string]()
	for _, metric := range s.Metrics {
		if metric.Name == "" {
			return fmt.Errorf("metric name must not be empty")
		}
		if !metricNames.Add(metric.Name) {
			return fmt.Errorf("duplicate metric name: %s", metric.Name)
		}
		if _, err := govaluate.NewEvaluableExpression(metric.Expression); err != nil {
			return fmt.Errorf("metric %s has an invalid expression: %w", metric.Name, err)
		}
	}
	return nil
}

// Assignment binds one swept parameter to one value.
type Assignment struct {
	Name  string
	Value int
}

// Config is one point in the sweep matrix: a value for every swept parameter,
// in the order the parameters were defined.
type Config struct {
	Assignments []Assignment
}

// Configs expands the parameter matrix into the full cross product of
// configurations, in deterministic order: the last parameter varies fastest.
func (s *Sweep) Configs() []Config {
	configs := []Config{{}}
	for _, param := range s.Parameters {
		var next []Config
		for _, cfg := range configs {
			for _, value := range param.Values {
				assignments := make([]Assignment, len(cfg.Assignments), len(cfg.Assignments)+1)
				copy(assignments, cfg.Assignments)
				assignments = append(assignments, Assignment{Name: param.Name, Value: value})
				next = append(next, Config{Assignments: assignments})
			}
		}
		configs = next
	}
	return configs
}

// Label returns a stable name for the configuration, usable in file names,
// e.g., "DMA_INFLIGHT_REQUESTS_4".
func (c Config) Label() string {
	parts := make([]string, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		parts = append(parts, fmt.Sprintf("%s_%d", a.Name, a.Value))
	}
	return strings.Join(parts, "__")
}

// DefineArgs returns the CMake cache entry arguments for the configuration,
// e.g., ["-DDMA_INFLIGHT_REQUESTS=4"].
func (c Config) DefineArgs() []string {
	args := make([]string, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		args = append(args, fmt.Sprintf("-D%s=%d", a.Name, a.Value))
	}
	return args
}

// Values returns the parameter assignments as a map.
func (c Config) Values() map[string]int {
	values := make(map[string]int, len(c.Assignments))
	for _, a := range c.Assignments {
		values[a.Name] = a.Value
	}
	return values
}
