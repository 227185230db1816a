package target

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// runLocalCommand executes a local command and captures its standard output,
// standard error, and exit code. The timeout is in seconds; zero means no
// timeout. The context cancels the command early, e.g., on SIGINT.
func runLocalCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	slog.Debug("running local command", slog.String("cmd", cmd.String()), slog.Int("timeout", timeout))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	commandWithContext := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...) // #nosec G204
	commandWithContext.Env = cmd.Env
	commandWithContext.Dir = cmd.Dir
	cmd = commandWithContext
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		}
	}
	return
}
