// Package common defines helpers shared by the application commands, e.g.,
// run, build, report, history.
package common

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	err := os.MkdirAll(outputDir, 0755) // #nosec G301
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}
