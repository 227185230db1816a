// Package build is a subcommand of the root command. It builds and stages
// the benchmark across the configuration matrix without running the
// simulator.
package build

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"simsweep/internal/app"
	"simsweep/internal/build"
	"simsweep/internal/common"
	"simsweep/internal/config"
	"simsweep/internal/pool"
	"simsweep/internal/progress"
	"simsweep/internal/util"
)

const cmdName = "build"

var examples = []string{
	fmt.Sprintf("  Build and stage all configurations:  $ %s %s aha-mont64 --values 1,2,4,8", app.Name, cmdName),
	fmt.Sprintf("  Build from a sweep file:             $ %s %s --config sweep.yaml", app.Name, cmdName),
	fmt.Sprintf("  Force a cold build:                  $ %s %s aha-mont64 --values 1,4 --no-cache", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           fmt.Sprintf("%s [BENCHMARK]", cmdName),
	Short:         "Build and stage benchmark artifacts without simulating",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
}

// flag vars
var (
	flagConfigFile string
	flagSuiteDir   string
	flagParam      string
	flagValues     []int
	flagCMake      string
	flagCMakeArgs  []string
	flagJobs       int
	flagNoCache    bool
	flagCacheDir   string
)

// flag names
const (
	flagConfigFileName = "config"
	flagSuiteDirName   = "suite"
	flagParamName      = "param"
	flagValuesName     = "values"
	flagCMakeName      = "cmake"
	flagCMakeArgsName  = "cmake-arg"
	flagJobsName       = "jobs"
	flagNoCacheName    = "no-cache"
	flagCacheDirName   = "cache-dir"
)

func init() {
	Cmd.Flags().StringVar(&flagConfigFile, flagConfigFileName, "", "")
	Cmd.Flags().StringVar(&flagSuiteDir, flagSuiteDirName, "", "")
	Cmd.Flags().StringVar(&flagParam, flagParamName, "", "")
	Cmd.Flags().IntSliceVar(&flagValues, flagValuesName, nil, "")
	Cmd.Flags().StringVar(&flagCMake, flagCMakeName, "", "")
	Cmd.Flags().StringSliceVar(&flagCMakeArgs, flagCMakeArgsName, nil, "")
	Cmd.Flags().IntVar(&flagJobs, flagJobsName, 0, "")
	Cmd.Flags().BoolVar(&flagNoCache, flagNoCacheName, false, "")
	Cmd.Flags().StringVar(&flagCacheDir, flagCacheDirName, "", "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [BENCHMARK] [flags]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Flags:")
	for _, group := range getFlagGroups() {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			flagDefault := ""
			if cmd.Flags().Lookup(flag.Name).DefValue != "" {
				flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(flag.Name).DefValue)
			}
			cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
		}
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if cmd.Parent().PersistentFlags().Lookup(pf.Name).DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(pf.Name).DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

func getFlagGroups() []app.FlagGroup {
	var groups []app.FlagGroup
	groups = append(groups, app.FlagGroup{
		GroupName: "Build Options",
		Flags: []app.Flag{
			{Name: flagConfigFileName, Help: "sweep definition file. See sweep.yaml for format."},
			{Name: flagSuiteDirName, Help: "benchmark suite source directory"},
			{Name: flagParamName, Help: "build parameter to sweep"},
			{Name: flagValuesName, Help: "comma-separated parameter values to sweep"},
			{Name: flagCMakeName, Help: "cmake executable"},
			{Name: flagCMakeArgsName, Help: "extra cmake configure argument, may be repeated"},
			{Name: flagJobsName, Help: "maximum concurrent build jobs"},
			{Name: flagNoCacheName, Help: "bypass the build artifact cache"},
			{Name: flagCacheDirName, Help: "override the build artifact cache directory"},
		},
	})
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagConfigFile == "" && len(args) < 1 {
		return common.FlagValidationError(cmd, "BENCHMARK argument is required unless --config is specified")
	}
	if flagConfigFile != "" {
		if _, err := os.Stat(flagConfigFile); os.IsNotExist(err) {
			return common.FlagValidationError(cmd, fmt.Sprintf("config file %s does not exist", flagConfigFile))
		}
	}
	if flagJobs < 0 {
		return common.FlagValidationError(cmd, "jobs must be positive")
	}
	if flagCacheDir != "" && !util.IsValidDirectoryName(flagCacheDir) {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid cache directory name: %s", flagCacheDir))
	}
	return nil
}

func assembleSweep(cmd *cobra.Command, args []string) (*config.Sweep, error) {
	sweep := &config.Sweep{}
	if flagConfigFile != "" {
		var err error
		sweep, err = config.Load(flagConfigFile)
		if err != nil {
			return nil, err
		}
	}
	if flagSuiteDir != "" {
		sweep.SuiteDir = flagSuiteDir
	}
	if flagParam != "" {
		sweep.Parameters = []config.Parameter{{Name: flagParam, Values: flagValues}}
	} else if len(flagValues) > 0 {
		if len(sweep.Parameters) > 1 {
			return nil, fmt.Errorf("--%s is ambiguous with multiple swept parameters, use --%s or the sweep file", flagValuesName, flagParamName)
		}
		name := config.DefaultParameterName
		if len(sweep.Parameters) == 1 {
			name = sweep.Parameters[0].Name
		}
		sweep.Parameters = []config.Parameter{{Name: name, Values: flagValues}}
	}
	if flagCMake != "" {
		sweep.CMake = flagCMake
	}
	if len(flagCMakeArgs) > 0 {
		sweep.CMakeArgs = flagCMakeArgs
	}
	if cmd.Flags().Lookup(flagJobsName).Changed {
		sweep.Jobs = flagJobs
	}
	if len(args) > 0 {
		sweep.Benchmark = args[0]
	}
	if sweep.SuiteDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		sweep.SuiteDir = wd
	}
	// the simulator section goes unused here, satisfy validation with a
	// placeholder directory
	if sweep.Sim.Dir == "" {
		sweep.Sim.Dir = sweep.SuiteDir
	}
	sweep.ApplyDefaults()
	if err := sweep.Validate(); err != nil {
		return nil, err
	}
	return sweep, nil
}

func cacheDir() (string, error) {
	if flagNoCache {
		return "", nil
	}
	if flagCacheDir != "" {
		return util.AbsPath(flagCacheDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, "."+app.Name, "cache"), nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := cmd.Parent().Context().Value(app.Context{}).(app.Context)
	sweep, err := assembleSweep(cmd, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	artifactCache, err := cacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	if err := common.CreateOutputDir(appContext.OutputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Parent().Context())
	defer cancel()
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChannel)
	go func() {
		sig, ok := <-sigChannel
		if !ok {
			return
		}
		slog.Info("received signal", slog.String("signal", sig.String()))
		cancel()
	}()

	configs := sweep.Configs()
	builder := &build.Builder{
		CMake:     sweep.CMake,
		SuiteDir:  sweep.SuiteDir,
		ExtraArgs: sweep.CMakeArgs,
		Benchmark: sweep.Benchmark,
		BuildRoot: filepath.Join(appContext.LocalTempDir, "build"),
		CacheDir:  artifactCache,
		StageDir:  filepath.Join(appContext.OutputDir, "bin"),
	}
	multiSpinner := progress.NewMultiSpinner()
	for _, cfg := range configs {
		if err := multiSpinner.AddSpinner(cfg.Label()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			slog.Error(err.Error())
			cmd.SilenceUsage = true
			return err
		}
	}
	multiSpinner.Start()

	var mu sync.Mutex
	staged := make(map[string]string, len(configs))
	buildPool := &pool.Pool{
		Workers:  sweep.Jobs,
		OnStatus: func(name string, status string) { _ = multiSpinner.Status(name, status) },
	}
	jobs := make([]pool.Job, 0, len(configs))
	for _, cfg := range configs {
		cfg := cfg
		jobs = append(jobs, pool.Job{
			Name: cfg.Label(),
			Run: func(jobCtx context.Context, attempt int) error {
				_ = multiSpinner.Status(cfg.Label(), "building")
				artifact, err := builder.Build(jobCtx, cfg)
				if err != nil {
					_ = multiSpinner.Status(cfg.Label(), fmt.Sprintf("build failed: %v", err))
					return pool.Permanent(err)
				}
				status := "staged"
				if artifact.FromCache {
					status = "staged from cache"
				}
				_ = multiSpinner.Status(cfg.Label(), status)
				mu.Lock()
				staged[cfg.Label()] = artifact.Path
				mu.Unlock()
				return nil
			},
		})
	}
	poolErr := buildPool.Run(ctx, jobs)
	multiSpinner.Finish()
	fmt.Println()

	labels := make([]string, 0, len(staged))
	for label := range staged {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	if len(labels) > 0 {
		fmt.Println("Staged artifacts:")
	}
	for _, label := range labels {
		fmt.Printf("  %s\n", staged[label])
	}
	if poolErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", poolErr)
		slog.Error(poolErr.Error())
		cmd.SilenceUsage = true
		return poolErr
	}
	return nil
}
