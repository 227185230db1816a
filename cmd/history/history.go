// Package history is a subcommand of the root command. It lists recorded
// sweeps from the history database.
package history

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"simsweep/internal/app"
	"simsweep/internal/common"
	"simsweep/internal/store"
)

const cmdName = "history"

var examples = []string{
	fmt.Sprintf("  List recent sweeps:               $ %s %s", app.Name, cmdName),
	fmt.Sprintf("  List sweeps for one benchmark:    $ %s %s --benchmark aha-mont64", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "List recorded sweeps",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagBenchmark string
	flagLimit     int
)

const (
	flagBenchmarkName = "benchmark"
	flagLimitName     = "limit"
)

func init() {
	Cmd.Flags().StringVar(&flagBenchmark, flagBenchmarkName, "", "only list sweeps of this benchmark")
	Cmd.Flags().IntVar(&flagLimit, flagLimitName, 20, "maximum number of sweeps to list, 0 for all")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagLimit < 0 {
		return common.FlagValidationError(cmd, "limit must not be negative")
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
	sweeps, err := s.ListSweeps(flagBenchmark, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("No recorded sweeps.")
		return nil
	}
	fmt.Printf("%-38s %-20s %-20s %-10s %6s %7s\n", "SWEEP", "BENCHMARK", "STARTED", "DURATION", "RUNS", "FAILED")
	for _, rec := range sweeps {
		fmt.Printf("%-38s %-20s %-20s %-10s %6d %7d\n",
			rec.ID,
			rec.Benchmark,
			rec.StartedAt.Local().Format(time.DateTime),
			rec.Duration.Round(time.Second),
			rec.Runs,
			rec.Failed)
	}
	return nil
}
