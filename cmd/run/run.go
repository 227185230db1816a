// Package run is a subcommand of the root command. It builds a benchmark
// across the configuration matrix, schedules the simulator runs, and
// aggregates the results.
package run

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"simsweep/internal/app"
	"simsweep/internal/build"
	"simsweep/internal/common"
	"simsweep/internal/config"
	"simsweep/internal/pool"
	"simsweep/internal/progress"
	"simsweep/internal/results"
	"simsweep/internal/sim"
	"simsweep/internal/store"
	"simsweep/internal/target"
	"simsweep/internal/util"
)

const cmdName = "run"

var examples = []string{
	fmt.Sprintf("  Sweep DMA inflight requests:    $ %s %s aha-mont64 ./vcs-sim --values 1,2,4,8", app.Name, cmdName),
	fmt.Sprintf("  Sweep from a file:              $ %s %s --config sweep.yaml", app.Name, cmdName),
	fmt.Sprintf("  Limit simulator parallelism:    $ %s %s crc32 ./vcs-sim --values 1,4 --jobs 2", app.Name, cmdName),
	fmt.Sprintf("  Retry flaky simulator runs:     $ %s %s crc32 ./vcs-sim --values 1,4 --retries 3", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           fmt.Sprintf("%s [BENCHMARK] [SIM_DIR]", cmdName),
	Short:         "Build the benchmark across the parameter matrix and run the simulator sweep",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MaximumNArgs(2),
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
	flagRetries    int
	flagFailFast   bool
	flagSimTarget  string
	flagSimTimeout int
	flagSimVars    []string
	flagNoCache    bool
	flagCacheDir   string
	flagFormat     []string
	flagPromPort   int
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
	flagRetriesName    = "retries"
	flagFailFastName   = "fail-fast"
	flagSimTargetName  = "sim-target"
	flagSimTimeoutName = "sim-timeout"
	flagSimVarsName    = "sim-var"
	flagNoCacheName    = "no-cache"
	flagCacheDirName   = "cache-dir"
	flagFormatName     = "format"
	flagPromPortName   = "prom-port"
)

const (
	formatTxt  = "txt"
	formatCSV  = "csv"
	formatXlsx = "xlsx"
	formatAll  = "all"
)

var formatOptions = []string{formatTxt, formatCSV, formatXlsx}

func init() {
	Cmd.Flags().StringVar(&flagConfigFile, flagConfigFileName, "", "")
	Cmd.Flags().StringVar(&flagSuiteDir, flagSuiteDirName, "", "")
	Cmd.Flags().StringVar(&flagParam, flagParamName, "", "")
	Cmd.Flags().IntSliceVar(&flagValues, flagValuesName, nil, "")
	Cmd.Flags().StringVar(&flagCMake, flagCMakeName, "", "")
	Cmd.Flags().StringSliceVar(&flagCMakeArgs, flagCMakeArgsName, nil, "")
	Cmd.Flags().IntVar(&flagJobs, flagJobsName, 0, "")
	Cmd.Flags().IntVar(&flagRetries, flagRetriesName, 0, "")
	Cmd.Flags().BoolVar(&flagFailFast, flagFailFastName, false, "")
	Cmd.Flags().StringVar(&flagSimTarget, flagSimTargetName, "", "")
	Cmd.Flags().IntVar(&flagSimTimeout, flagSimTimeoutName, 0, "")
	Cmd.Flags().StringSliceVar(&flagSimVars, flagSimVarsName, nil, "")
	Cmd.Flags().BoolVar(&flagNoCache, flagNoCacheName, false, "")
	Cmd.Flags().StringVar(&flagCacheDir, flagCacheDirName, "", "")
	Cmd.Flags().StringSliceVar(&flagFormat, flagFormatName, []string{formatAll}, "")
	Cmd.Flags().IntVar(&flagPromPort, flagPromPortName, 0, "")

	common.AddTargetFlags(Cmd)

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [BENCHMARK] [SIM_DIR] [flags]\n\n", cmd.CommandPath())
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
		GroupName: "Sweep Options",
		Flags: []app.Flag{
			{Name: flagConfigFileName, Help: "sweep definition file. See sweep.yaml for format."},
			{Name: flagParamName, Help: "build parameter to sweep"},
			{Name: flagValuesName, Help: "comma-separated parameter values to sweep"},
			{Name: flagJobsName, Help: "maximum concurrent build and simulator jobs"},
			{Name: flagRetriesName, Help: "retries per failed simulator run"},
			{Name: flagFailFastName, Help: "stop the sweep on the first unrecoverable failure"},
		},
	})
	groups = append(groups, app.FlagGroup{
		GroupName: "Build Options",
		Flags: []app.Flag{
			{Name: flagSuiteDirName, Help: "benchmark suite source directory"},
			{Name: flagCMakeName, Help: "cmake executable"},
			{Name: flagCMakeArgsName, Help: "extra cmake configure argument, may be repeated"},
			{Name: flagNoCacheName, Help: "bypass the build artifact cache"},
			{Name: flagCacheDirName, Help: "override the build artifact cache directory"},
		},
	})
	groups = append(groups, app.FlagGroup{
		GroupName: "Simulator Options",
		Flags: []app.Flag{
			{Name: flagSimTargetName, Help: "make target that launches the simulator"},
			{Name: flagSimTimeoutName, Help: "seconds per simulator run, 0 for no timeout"},
			{Name: flagSimVarsName, Help: "extra VAR=value make argument, may be repeated"},
		},
	})
	groups = append(groups, app.FlagGroup{
		GroupName: "Other Options",
		Flags: []app.Flag{
			{Name: flagFormatName, Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(append([]string{formatAll}, formatOptions...), ", "))},
			{Name: flagPromPortName, Help: "expose live sweep metrics for Prometheus on this port, 0 to disable"},
		},
	})
	groups = append(groups, common.GetTargetFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagConfigFile == "" && len(args) < 2 {
		return common.FlagValidationError(cmd, "BENCHMARK and SIM_DIR arguments are required unless --config is specified")
	}
	if flagConfigFile != "" {
		if _, err := os.Stat(flagConfigFile); os.IsNotExist(err) {
			return common.FlagValidationError(cmd, fmt.Sprintf("config file %s does not exist", flagConfigFile))
		}
	}
	for _, format := range flagFormat {
		options := append([]string{formatAll}, formatOptions...)
		if !slices.Contains(options, format) {
			return common.FlagValidationError(cmd, fmt.Sprintf("format options are: %s", strings.Join(options, ", ")))
		}
	}
	for _, v := range flagSimVars {
		if !strings.Contains(v, "=") {
			return common.FlagValidationError(cmd, fmt.Sprintf("simulator variable %s is not in VAR=value form", v))
		}
	}
	if flagJobs < 0 {
		return common.FlagValidationError(cmd, "jobs must be positive")
	}
	if flagRetries < 0 {
		return common.FlagValidationError(cmd, "retries must not be negative")
	}
	if flagPromPort < 0 || flagPromPort > 65535 {
		return common.FlagValidationError(cmd, "prom-port must be a valid port number")
	}
	if flagCacheDir != "" && !util.IsValidDirectoryName(flagCacheDir) {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid cache directory name: %s", flagCacheDir))
	}
	if err := common.ValidateTargetFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

// assembleSweep merges the sweep file, command flags, and positional
// arguments. Flags override file values, positional arguments override both.
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
	if cmd.Flags().Lookup(flagRetriesName).Changed {
		sweep.Retries = flagRetries
	}
	if cmd.Flags().Lookup(flagFailFastName).Changed {
		sweep.FailFast = flagFailFast
	}
	if flagSimTarget != "" {
		sweep.Sim.MakeTarget = flagSimTarget
	}
	if cmd.Flags().Lookup(flagSimTimeoutName).Changed {
		sweep.Sim.Timeout = flagSimTimeout
	}
	for _, v := range flagSimVars {
		name, value, _ := strings.Cut(v, "=")
		if sweep.Sim.Vars == nil {
			sweep.Sim.Vars = map[string]string{}
		}
		sweep.Sim.Vars[name] = value
	}
	// positional arguments override both
	if len(args) > 0 {
		sweep.Benchmark = args[0]
	}
	if len(args) > 1 {
		simDir, err := util.AbsPath(args[1])
		if err != nil {
			return nil, fmt.Errorf("failed to expand simulator directory: %w", err)
		}
		sweep.Sim.Dir = simDir
	}
	if sweep.SuiteDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		sweep.SuiteDir = wd
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
	myTarget, err := common.GetTarget(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	defer func() {
		if err := myTarget.RemoveTempDirectory(); err != nil {
			slog.Warn("failed to remove target temp directory", slog.String("target", myTarget.GetName()), slog.String("error", err.Error()))
		}
	}()
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

	// cancel in-flight builds and simulator runs on ctrl-c
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

	if flagPromPort > 0 {
		startPrometheusServer(fmt.Sprintf(":%d", flagPromPort))
	}

	sweepCommand := &sweepCommand{
		sweep:      sweep,
		target:     myTarget,
		appContext: appContext,
		cacheDir:   artifactCache,
	}
	startedAt := time.Now()
	set, sweepErr := sweepCommand.execute(ctx)
	if set == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", sweepErr)
		slog.Error(sweepErr.Error())
		cmd.SilenceUsage = true
		return sweepErr
	}
	duration := time.Since(startedAt)

	// reports and history cover whatever the sweep collected, even when it
	// was interrupted or stopped early
	if err := writeReports(set, appContext.OutputDir, flagFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	if err := recordSweep(set, appContext.StorePath, startedAt, duration); err != nil {
		// history is best effort, the reports are already on disk
		fmt.Fprintf(os.Stderr, "Warning: failed to record sweep history: %v\n", err)
		slog.Warn("failed to record sweep history", slog.String("error", err.Error()))
	}
	if sweepErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", sweepErr)
		slog.Error(sweepErr.Error())
		cmd.SilenceUsage = true
		return sweepErr
	}
	if failed := set.Failed(); failed > 0 {
		err := fmt.Errorf("%d of %d configurations failed", failed, len(set.Runs))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cmd.SilenceUsage = true
		return err
	}
	return nil
}

// sweepCommand holds everything one sweep execution needs.
type sweepCommand struct {
	sweep      *config.Sweep
	target     target.Target
	appContext app.Context
	cacheDir   string
}

// execute runs the build phase and then the simulate phase over the
// configuration matrix and returns the aggregated result set. When the sweep
// is interrupted or stops on a fail-fast error, the set still carries the
// rows collected so far alongside the error.
func (sc *sweepCommand) execute(ctx context.Context) (*results.Set, error) {
	sweep := sc.sweep
	configs := sweep.Configs()
	parameters := make([]string, 0, len(sweep.Parameters))
	matrix := make([]string, 0, len(sweep.Parameters))
	for _, p := range sweep.Parameters {
		parameters = append(parameters, p.Name)
		matrix = append(matrix, p.Name+"="+strings.Join(util.IntSliceToStringSlice(p.Values), ","))
	}
	set := results.NewSet(store.NewSweepID(), sweep.Benchmark, parameters, sweep.Metrics)
	slog.Info("starting sweep",
		slog.String("sweep", set.SweepID),
		slog.String("benchmark", sweep.Benchmark),
		slog.String("parameters", strings.Join(matrix, " ")),
		slog.Int("configurations", len(configs)),
		slog.Int("jobs", sweep.Jobs))

	multiSpinner := progress.NewMultiSpinner()
	for _, cfg := range configs {
		if err := multiSpinner.AddSpinner(cfg.Label()); err != nil {
			return nil, err
		}
	}
	multiSpinner.Start()
	defer func() {
		multiSpinner.Finish()
		fmt.Println()
	}()

	builder := &build.Builder{
		CMake:     sweep.CMake,
		SuiteDir:  sweep.SuiteDir,
		ExtraArgs: sweep.CMakeArgs,
		Benchmark: sweep.Benchmark,
		BuildRoot: filepath.Join(sc.appContext.LocalTempDir, "build"),
		CacheDir:  sc.cacheDir,
		StageDir:  filepath.Join(sc.appContext.OutputDir, "bin"),
		Timeout:   0,
	}
	runner := &sim.Runner{
		Target:     sc.target,
		SimDir:     sweep.Sim.Dir,
		MakeTarget: sweep.Sim.MakeTarget,
		Timeout:    sweep.Sim.Timeout,
		Vars:       sweep.Sim.Vars,
		LogDir:     filepath.Join(sc.appContext.OutputDir, "logs"),
	}

	var mu sync.Mutex
	artifacts := make(map[string]build.Artifact, len(configs))
	simResults := make(map[string]sim.Result, len(configs))

	// build phase: failures are permanent, a broken configure fails the
	// same way every time
	buildPool := &pool.Pool{
		Workers:  sweep.Jobs,
		FailFast: sweep.FailFast,
		OnStatus: func(name string, status string) { _ = multiSpinner.Status(name, status) },
	}
	buildJobs := make([]pool.Job, 0, len(configs))
	for _, cfg := range configs {
		cfg := cfg
		buildJobs = append(buildJobs, pool.Job{
			Name: cfg.Label(),
			Run: func(jobCtx context.Context, attempt int) error {
				_ = multiSpinner.Status(cfg.Label(), "building")
				promJobRunning(1)
				defer promJobRunning(-1)
				artifact, err := builder.Build(jobCtx, cfg)
				if err != nil {
					_ = multiSpinner.Status(cfg.Label(), fmt.Sprintf("build failed: %v", err))
					mu.Lock()
					simResults[cfg.Label()] = sim.Result{
						Label:     cfg.Label(),
						Benchmark: sweep.Benchmark,
						Attempts:  attempt,
						Failed:    true,
						Error:     err.Error(),
					}
					mu.Unlock()
					return pool.Permanent(err)
				}
				status := "staged"
				if artifact.FromCache {
					status = "staged from cache"
				}
				_ = multiSpinner.Status(cfg.Label(), status)
				mu.Lock()
				artifacts[cfg.Label()] = artifact
				mu.Unlock()
				return nil
			},
		})
	}
	var sweepErr error
	if err := buildPool.Run(ctx, buildJobs); err != nil {
		if sweep.FailFast || ctx.Err() != nil {
			sweepErr = err
		} else {
			slog.Warn("build phase finished with failures", slog.String("error", err.Error()))
		}
	}

	// simulate phase: only configurations whose build and stage succeeded
	if sweepErr == nil {
		simPool := &pool.Pool{
			Workers:  sweep.Jobs,
			Retries:  sweep.Retries,
			FailFast: sweep.FailFast,
			OnStatus: func(name string, status string) { _ = multiSpinner.Status(name, status) },
		}
		simJobs := make([]pool.Job, 0, len(configs))
		for _, cfg := range configs {
			cfg := cfg
			mu.Lock()
			artifact, built := artifacts[cfg.Label()]
			mu.Unlock()
			if !built {
				continue
			}
			simJobs = append(simJobs, pool.Job{
				Name: cfg.Label(),
				Run: func(jobCtx context.Context, attempt int) error {
					_ = multiSpinner.Status(cfg.Label(), "simulating")
					promJobRunning(1)
					defer promJobRunning(-1)
					result, err := runner.Simulate(jobCtx, artifact, sweep.Benchmark)
					result.Attempts = attempt
					mu.Lock()
					simResults[cfg.Label()] = result
					mu.Unlock()
					if err != nil {
						if jobCtx.Err() != nil {
							return jobCtx.Err()
						}
						return err
					}
					_ = multiSpinner.Status(cfg.Label(), fmt.Sprintf("done in %s", result.Duration.Round(time.Second)))
					promJobCompleted()
					promRunStats(cfg.Label(), result.Stats)
					return nil
				},
			})
		}
		if err := simPool.Run(ctx, simJobs); err != nil {
			if sweep.FailFast || ctx.Err() != nil {
				sweepErr = err
			} else {
				slog.Warn("simulate phase finished with failures", slog.String("error", err.Error()))
			}
		}
	}

	// every configuration yields exactly one result row, ok or failed
	for _, cfg := range configs {
		mu.Lock()
		result, ok := simResults[cfg.Label()]
		mu.Unlock()
		if !ok {
			result = sim.Result{
				Label:     cfg.Label(),
				Benchmark: sweep.Benchmark,
				Failed:    true,
				Error:     "not simulated",
			}
		}
		if result.Failed {
			promJobFailed()
			if result.Error != "" {
				_ = multiSpinner.Status(cfg.Label(), "failed: "+result.Error)
			} else {
				_ = multiSpinner.Status(cfg.Label(), "failed")
			}
		}
		set.Add(cfg, result)
	}
	if err := set.Derive(); err != nil {
		if sweepErr == nil {
			sweepErr = err
		} else {
			slog.Warn("failed to derive metrics", slog.String("error", err.Error()))
		}
	}
	return set, sweepErr
}

// writeReports renders the requested report formats into the output
// directory and prints the text report to stdout.
func writeReports(set *results.Set, outputDir string, requested []string) error {
	formats := requested
	if slices.Contains(formats, formatAll) {
		formats = formatOptions
	}
	reportFilePaths := []string{}
	for _, format := range formats {
		reportPath := filepath.Join(outputDir, fmt.Sprintf("%s.%s", set.Benchmark, format))
		switch format {
		case formatTxt:
			f, err := os.Create(reportPath) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to create text report: %w", err)
			}
			err = set.RenderText(f)
			closeErr := f.Close()
			if err != nil {
				return fmt.Errorf("failed to render text report: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}
		case formatCSV:
			f, err := os.Create(reportPath) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to create CSV report: %w", err)
			}
			err = set.RenderCSV(f)
			closeErr := f.Close()
			if err != nil {
				return fmt.Errorf("failed to render CSV report: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}
		case formatXlsx:
			if err := set.WriteXlsx(reportPath); err != nil {
				return fmt.Errorf("failed to render xlsx report: %w", err)
			}
		}
		reportFilePaths = append(reportFilePaths, reportPath)
	}
	if err := set.RenderText(os.Stdout); err != nil {
		return err
	}
	if len(reportFilePaths) > 0 {
		fmt.Println("Report files:")
	}
	for _, reportFilePath := range reportFilePaths {
		fmt.Printf("  %s\n", reportFilePath)
	}
	return nil
}

func recordSweep(set *results.Set, storePath string, startedAt time.Time, duration time.Duration) error {
	s, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.RecordSweep(set, startedAt, duration)
}
