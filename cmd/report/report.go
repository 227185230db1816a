// Package report is a subcommand of the root command. It re-renders reports
// for a recorded sweep from the history database.
package report

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"simsweep/internal/app"
	"simsweep/internal/common"
	"simsweep/internal/config"
	"simsweep/internal/results"
	"simsweep/internal/sim"
	"simsweep/internal/store"
)

const cmdName = "report"

var examples = []string{
	fmt.Sprintf("  Re-render the most recent sweep:  $ %s %s", app.Name, cmdName),
	fmt.Sprintf("  Re-render a specific sweep:       $ %s %s --sweep 2f6e7c2a-...", app.Name, cmdName),
	fmt.Sprintf("  CSV only:                         $ %s %s --format csv", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Render reports for a recorded sweep",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagSweepID string
	flagFormat  []string
)

const (
	flagSweepIDName = "sweep"
	flagFormatName  = "format"
)

const (
	formatTxt  = "txt"
	formatCSV  = "csv"
	formatXlsx = "xlsx"
	formatAll  = "all"
)

var formatOptions = []string{formatTxt, formatCSV, formatXlsx}

func init() {
	Cmd.Flags().StringVar(&flagSweepID, flagSweepIDName, "", "sweep id to render, defaults to the most recent sweep")
	Cmd.Flags().StringSliceVar(&flagFormat, flagFormatName, []string{formatAll}, fmt.Sprintf("choose output format(s) from: %s", strings.Join(append([]string{formatAll}, formatOptions...), ", ")))
}

func validateFlags(cmd *cobra.Command, args []string) error {
	for _, format := range flagFormat {
		options := append([]string{formatAll}, formatOptions...)
		if !slices.Contains(options, format) {
			return common.FlagValidationError(cmd, fmt.Sprintf("format options are: %s", strings.Join(options, ", ")))
		}
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := cmd.Parent().Context().Value(app.Context{}).(app.Context)
	s, err := store.Open(appContext.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	defer s.Close()
	set, err := loadSet(s, flagSweepID)
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
	formats := flagFormat
	if slices.Contains(formats, formatAll) {
		formats = formatOptions
	}
	reportFilePaths := []string{}
	for _, format := range formats {
		reportPath := filepath.Join(appContext.OutputDir, fmt.Sprintf("%s.%s", set.Benchmark, format))
		var renderErr error
		switch format {
		case formatTxt:
			f, err := os.Create(reportPath) // #nosec G304
			if err != nil {
				renderErr = err
				break
			}
			renderErr = set.RenderText(f)
			if closeErr := f.Close(); renderErr == nil {
				renderErr = closeErr
			}
		case formatCSV:
			f, err := os.Create(reportPath) // #nosec G304
			if err != nil {
				renderErr = err
				break
			}
			renderErr = set.RenderCSV(f)
			if closeErr := f.Close(); renderErr == nil {
				renderErr = closeErr
			}
		case formatXlsx:
			renderErr = set.WriteXlsx(reportPath)
		}
		if renderErr != nil {
			err := fmt.Errorf("failed to render %s report: %w", format, renderErr)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			slog.Error(err.Error())
			cmd.SilenceUsage = true
			return err
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

// loadSet rebuilds a result set from the recorded runs of one sweep. An
// empty sweep id selects the most recent sweep.
func loadSet(s *store.Store, sweepID string) (*results.Set, error) {
	sweeps, err := s.ListSweeps("", 0)
	if err != nil {
		return nil, err
	}
	if sweepID == "" {
		if len(sweeps) == 0 {
			return nil, fmt.Errorf("no recorded sweeps")
		}
		sweepID = sweeps[0].ID
		slog.Info("rendering most recent sweep", slog.String("sweep", sweepID), slog.String("started", sweeps[0].StartedAt.Format(time.RFC3339)))
	}
	var sweep *store.SweepRecord
	for i := range sweeps {
		if sweeps[i].ID == sweepID {
			sweep = &sweeps[i]
			break
		}
	}
	if sweep == nil {
		return nil, fmt.Errorf("sweep %s not found", sweepID)
	}
	runs, err := s.GetRuns(sweepID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("sweep %s has no recorded runs", sweepID)
	}
	// parameter names come from the sweep row in their recorded order; rows
	// written before the order was stored fall back to the run values
	parameters := sweep.Parameters
	if len(parameters) == 0 {
		for name := range runs[0].Values {
			parameters = append(parameters, name)
		}
		sort.Strings(parameters)
	}
	benchmark := sweep.Benchmark
	derivedNames := map[string]bool{}
	for _, run := range runs {
		for name := range run.Derived {
			derivedNames[name] = true
		}
	}
	metrics := make([]config.Metric, 0, len(derivedNames))
	for name := range derivedNames {
		metrics = append(metrics, config.Metric{Name: name})
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	set := results.NewSet(sweepID, benchmark, parameters, metrics)
	for _, run := range runs {
		set.Runs = append(set.Runs, results.Run{
			Label:  run.Label,
			Values: run.Values,
			Sim: sim.Result{
				Label:    run.Label,
				Attempts: run.Attempts,
				Duration: run.Duration,
				Stats:    run.Stats,
				Failed:   run.Failed,
				Error:    run.Error,
			},
			Derived: run.Derived,
		})
	}
	return set, nil
}
