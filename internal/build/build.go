/*
Package build compiles the benchmark under each sweep configuration and
stages the resulting binaries for simulation. Builds go through CMake; the
swept parameters become CMake cache entries. A content-addressed artifact
cache skips rebuilds when neither the sources nor the configuration changed.
*/
package build

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"simsweep/internal/config"
	"simsweep/internal/target"
	"simsweep/internal/util"
)

// Builder compiles and stages benchmark binaries, one per sweep configuration.
// Builds always run on the local host where the suite sources live; a remote
// simulation target receives only the staged binaries.
type Builder struct {
	CMake     string   // cmake executable
	SuiteDir  string   // benchmark suite source tree
	ExtraArgs []string // extra configure arguments from the sweep file
	Benchmark string   // name of the benchmark binary to stage
	BuildRoot string   // root for per-configuration build directories
	CacheDir  string   // artifact cache, empty disables caching
	StageDir  string   // where staged binaries land
	Timeout   int      // seconds per cmake invocation, zero means none
}

// Artifact is a staged benchmark binary for one sweep configuration.
type Artifact struct {
	Config    config.Config
	Path      string // staged binary path
	CacheKey  string
	FromCache bool
}

// StagedName returns the file name a configuration's binary is staged under,
// e.g., "aha-mont64.DMA_INFLIGHT_REQUESTS_4.elf".
func StagedName(benchmark string, cfg config.Config) string {
	return fmt.Sprintf("%s.%s.elf", benchmark, cfg.Label())
}

// Build compiles the benchmark for one configuration and stages the binary.
// On a cache hit the configure/build steps are skipped entirely.
func (b *Builder) Build(ctx context.Context, cfg config.Config) (Artifact, error) {
	artifact := Artifact{Config: cfg}
	key, err := Key(b.SuiteDir, b.ExtraArgs, cfg.DefineArgs())
	if err != nil {
		return artifact, fmt.Errorf("failed to compute cache key for %s: %w", cfg.Label(), err)
	}
	artifact.CacheKey = key
	cachedPath := ""
	if b.CacheDir != "" {
		cachedPath = filepath.Join(b.CacheDir, key, b.Benchmark)
		exists, err := util.FileExists(cachedPath)
		if err != nil {
			return artifact, fmt.Errorf("failed to probe artifact cache: %w", err)
		}
		if exists {
			slog.Debug("artifact cache hit", slog.String("config", cfg.Label()), slog.String("key", key))
			artifact.FromCache = true
			artifact.Path, err = b.stage(cachedPath, cfg)
			return artifact, err
		}
	}
	builtPath, err := b.compile(ctx, cfg)
	if err != nil {
		return artifact, err
	}
	if cachedPath != "" {
		if err := util.CreateDirectoryIfNotExists(filepath.Dir(cachedPath), 0755); err != nil {
			return artifact, err
		}
		if err := util.CopyFile(builtPath, cachedPath); err != nil {
			return artifact, fmt.Errorf("failed to populate artifact cache: %w", err)
		}
	}
	artifact.Path, err = b.stage(builtPath, cfg)
	return artifact, err
}

// compile runs CMake configure and build for one configuration and returns
// the path of the produced benchmark binary inside the build directory.
func (b *Builder) compile(ctx context.Context, cfg config.Config) (string, error) {
	buildDir := filepath.Join(b.BuildRoot, cfg.Label())
	if err := util.CreateDirectoryIfNotExists(buildDir, 0755); err != nil {
		return "", err
	}
	configureArgs := []string{"-S", b.SuiteDir, "-B", buildDir}
	configureArgs = append(configureArgs, b.ExtraArgs...)
	configureArgs = append(configureArgs, cfg.DefineArgs()...)
	if err := b.runCMake(ctx, cfg, configureArgs); err != nil {
		return "", fmt.Errorf("configure failed for %s: %w", cfg.Label(), err)
	}
	if err := b.runCMake(ctx, cfg, []string{"--build", buildDir}); err != nil {
		return "", fmt.Errorf("build failed for %s: %w", cfg.Label(), err)
	}
	builtPath, err := findBinary(buildDir, b.Benchmark)
	if err != nil {
		return "", fmt.Errorf("build for %s produced no binary: %w", cfg.Label(), err)
	}
	return builtPath, nil
}

func (b *Builder) runCMake(ctx context.Context, cfg config.Config, args []string) error {
	cmd := exec.Command(b.CMake, args...) // #nosec G204
	stdout, stderr, exitCode, err := target.NewLocalTarget().RunCommand(ctx, cmd, b.Timeout)
	if err != nil {
		slog.Error("cmake failed", slog.String("config", cfg.Label()), slog.Int("exitcode", exitCode), slog.String("stderr", util.TailLines(stderr, 5)))
		return fmt.Errorf("%s %v: exit code %d: %s", b.CMake, args[:min(2, len(args))], exitCode, util.TailLines(stdout+stderr, 10))
	}
	return nil
}

// stage copies a built binary into the staging directory under the
// per-configuration name. The copy is atomic: write to a temp name, then
// rename, so a crashed sweep never leaves a truncated binary behind.
func (b *Builder) stage(srcPath string, cfg config.Config) (string, error) {
	if err := util.CreateDirectoryIfNotExists(b.StageDir, 0755); err != nil {
		return "", err
	}
	stagedPath := filepath.Join(b.StageDir, StagedName(b.Benchmark, cfg))
	tempPath := stagedPath + ".tmp"
	if err := util.CopyFile(srcPath, tempPath); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", srcPath, err)
	}
	if err := os.Rename(tempPath, stagedPath); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", srcPath, err)
	}
	slog.Debug("staged binary", slog.String("config", cfg.Label()), slog.String("path", stagedPath))
	return stagedPath, nil
}

// findBinary locates the benchmark binary in the build tree. Benchmark suites
// differ in where their build systems put binaries, so search by name.
func findBinary(buildDir string, name string) (string, error) {
	var found string
	err := filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("binary %s not found under %s", name, buildDir)
	}
	return found, nil
}
