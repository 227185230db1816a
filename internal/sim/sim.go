/*
Package sim launches simulator runs over staged benchmark binaries and
collects their statistics. The simulator (VCS) sits behind a Makefile in the
simulation directory; each run is a `make` invocation with the staged binary
passed as a variable.
*/
package sim

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"simsweep/internal/build"
	"simsweep/internal/target"
	"simsweep/internal/util"
)

// Runner launches simulator runs.
type Runner struct {
	Target     target.Target     // where make runs, nil means local
	SimDir     string            // simulator work directory (the VCS setup)
	MakeTarget string            // make target that launches the simulator
	Timeout    int               // seconds per run, zero means none
	Vars       map[string]string // extra VAR=value make arguments
	LogDir     string            // raw per-run logs land here

	tempDirMu sync.Mutex // concurrent runs share the target's temp directory
}

// Result is the outcome of simulating one staged binary. Attempts counts all
// tries including the successful one.
type Result struct {
	Label     string
	Benchmark string
	Binary    string
	Exitcode  int
	Attempts  int
	Duration  time.Duration
	Stats     map[string]float64
	Failed    bool
	Error     string
}

// Simulate runs the simulator once over the given staged artifact. Retry
// policy lives in the caller; this is a single attempt.
func (r *Runner) Simulate(ctx context.Context, artifact build.Artifact, benchmark string) (Result, error) {
	result := Result{
		Label:     artifact.Config.Label(),
		Benchmark: benchmark,
		Binary:    artifact.Path,
		Stats:     map[string]float64{},
	}
	tgt := r.Target
	if tgt == nil {
		tgt = target.NewLocalTarget()
	}
	binaryPath := artifact.Path
	if _, ok := tgt.(*target.LocalTarget); !ok {
		// the staged binary lives on this host; a remote simulation host
		// needs its own copy before make can reference it
		var err error
		binaryPath, err = r.pushBinary(tgt, artifact.Path)
		if err != nil {
			result.Failed = true
			result.Error = fmt.Sprintf("failed to push binary to %s: %v", tgt.GetName(), err)
			slog.Error("failed to push binary", slog.String("config", result.Label), slog.String("target", tgt.GetName()), slog.String("error", err.Error()))
			return result, fmt.Errorf("failed to push binary for %s to %s: %w", result.Label, tgt.GetName(), err)
		}
	}
	args := []string{"-C", r.SimDir, r.MakeTarget, "BINARY=" + binaryPath}
	for _, name := range sortedKeys(r.Vars) {
		args = append(args, name+"="+r.Vars[name])
	}
	cmd := exec.Command("make", args...) // #nosec G204
	start := time.Now()
	stdout, stderr, exitCode, err := tgt.RunCommand(ctx, cmd, r.Timeout)
	result.Duration = time.Since(start)
	result.Exitcode = exitCode
	if logErr := r.writeRunLog(artifact, stdout, stderr); logErr != nil {
		slog.Warn("failed to write simulator log", slog.String("config", result.Label), slog.String("error", logErr.Error()))
	}
	if err != nil {
		result.Failed = true
		result.Error = fmt.Sprintf("simulator exit code %d: %s", exitCode, util.TailLines(stderr, 5))
		slog.Error("simulator run failed", slog.String("config", result.Label), slog.Int("exitcode", exitCode), slog.String("stderr", util.TailLines(stderr, 5)))
		return result, fmt.Errorf("simulator run for %s failed: %w", result.Label, err)
	}
	result.Stats = ParseStats(stdout)
	if len(result.Stats) == 0 {
		slog.Warn("simulator run produced no stats", slog.String("config", result.Label))
	}
	return result, nil
}

// pushBinary copies a staged binary into the target's temporary directory
// and returns the path it can be referenced by there. The directory is
// created on first use and reused for the rest of the sweep.
func (r *Runner) pushBinary(tgt target.Target, localPath string) (string, error) {
	r.tempDirMu.Lock()
	tempDir, err := tgt.CreateTempDirectory("")
	r.tempDirMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory on %s: %w", tgt.GetName(), err)
	}
	if err := tgt.PushFile(localPath, tempDir); err != nil {
		return "", err
	}
	return path.Join(tempDir, filepath.Base(localPath)), nil
}

// writeRunLog saves the raw simulator output. Logs are written even for
// failed runs so the output directory always has the evidence.
func (r *Runner) writeRunLog(artifact build.Artifact, stdout string, stderr string) error {
	if r.LogDir == "" {
		return nil
	}
	if err := util.CreateDirectoryIfNotExists(r.LogDir, 0755); err != nil {
		return err
	}
	logPath := filepath.Join(r.LogDir, artifact.Config.Label()+".log")
	content := stdout
	if stderr != "" {
		content += "\n--- stderr ---\n" + stderr
	}
	return os.WriteFile(logPath, []byte(content), 0644) // #nosec G306
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
