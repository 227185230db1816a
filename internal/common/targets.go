package common

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"simsweep/internal/app"
	"simsweep/internal/target"
)

// target flags
var (
	flagTargetHost    string
	flagTargetPort    string
	flagTargetUser    string
	flagTargetKeyFile string
)

// target flag names
const (
	flagTargetHostName = "target"
	flagTargetPortName = "port"
	flagTargetUserName = "user"
	flagTargetKeyName  = "key"
)

var targetFlags = []app.Flag{
	{Name: flagTargetHostName, Help: "host name or IP address of remote simulation host"},
	{Name: flagTargetPortName, Help: "port for SSH to remote simulation host"},
	{Name: flagTargetUserName, Help: "user name for SSH to remote simulation host"},
	{Name: flagTargetKeyName, Help: "private key file for SSH to remote simulation host"},
}

func AddTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagTargetHost, flagTargetHostName, "", targetFlags[0].Help)
	cmd.Flags().StringVar(&flagTargetPort, flagTargetPortName, "", targetFlags[1].Help)
	cmd.Flags().StringVar(&flagTargetUser, flagTargetUserName, "", targetFlags[2].Help)
	cmd.Flags().StringVar(&flagTargetKeyFile, flagTargetKeyName, "", targetFlags[3].Help)
}

func GetTargetFlagGroup() app.FlagGroup {
	return app.FlagGroup{
		GroupName: "Remote Simulation Host Options",
		Flags:     targetFlags,
	}
}

func ValidateTargetFlags(cmd *cobra.Command) error {
	if (flagTargetPort != "" || flagTargetUser != "" || flagTargetKeyFile != "") && flagTargetHost == "" {
		return fmt.Errorf("if --%s, --%s, or --%s is specified, --%s must also be specified", flagTargetPortName, flagTargetUserName, flagTargetKeyName, flagTargetHostName)
	}
	// confirm that port is a positive integer
	if flagTargetPort != "" {
		var port int
		var err error
		if port, err = strconv.Atoi(flagTargetPort); err != nil || port <= 0 {
			return fmt.Errorf("port %s is not a positive integer", flagTargetPort)
		}
	}
	// confirm that the key file exists
	if flagTargetKeyFile != "" {
		if _, err := os.Stat(flagTargetKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("key file %s does not exist", flagTargetKeyFile)
		}
	}
	// confirm that user is a valid user name
	if flagTargetUser != "" {
		re := regexp.MustCompile(`^([a-zA-Z0-9_-]+)$`)
		if !re.MatchString(flagTargetUser) {
			return fmt.Errorf("user name %s contains invalid characters", flagTargetUser)
		}
	}
	// confirm that host is a valid host name or IP address
	if flagTargetHost != "" {
		re := regexp.MustCompile(`^([a-zA-Z0-9.-]+)$`)
		if !re.MatchString(flagTargetHost) {
			return fmt.Errorf("host name %s is not a valid host name or IP address", flagTargetHost)
		}
	}
	return nil
}

// GetTarget returns the host the build and simulation commands run on: the
// local host unless --target selects a remote simulation host over SSH.
func GetTarget(cmd *cobra.Command) (target.Target, error) {
	if flagTargetHost == "" {
		return target.NewLocalTarget(), nil
	}
	remote := target.NewRemoteTarget(flagTargetHost, flagTargetHost, flagTargetPort, flagTargetUser, flagTargetKeyFile)
	if !remote.CanConnect() {
		return nil, fmt.Errorf("failed to connect to remote simulation host %s", flagTargetHost)
	}
	slog.Info("connected to remote simulation host", slog.String("host", flagTargetHost))
	return remote, nil
}
