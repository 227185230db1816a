package target

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RunCommand executes a command on the remote target using ssh. It prepares the
// local ssh command, optionally reusing an existing connection, and runs it with
// the specified timeout.
func (t *RemoteTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	localCommand := t.prepareLocalCommand(cmd)
	return runLocalCommand(ctx, localCommand, timeout)
}

// CreateTempDirectory creates a temporary directory on the remote target.
// If a temporary directory has already been created, it returns the existing one.
func (t *RemoteTarget) CreateTempDirectory(rootDir string) (tempDir string, err error) {
	if t.tempDir != "" {
		return t.tempDir, nil
	}
	var root string
	if rootDir != "" {
		root = fmt.Sprintf("--tmpdir=%s", rootDir)
	}
	cmd := exec.Command("mktemp", "-d", "-t", root, "simsweep.tmp.XXXXXXXXXX") // #nosec G204
	tempDir, _, _, err = t.RunCommand(context.Background(), cmd, 0)
	if err != nil {
		return
	}
	tempDir = strings.TrimSpace(tempDir)
	t.tempDir = tempDir
	return
}

func (t *RemoteTarget) RemoveTempDirectory() (err error) {
	if t.tempDir != "" {
		err = t.RemoveDirectory(t.tempDir)
		if err == nil {
			t.tempDir = ""
		}
	}
	return
}

func (t *RemoteTarget) GetTempDirectory() string {
	return t.tempDir
}

// PushFile transfers a file or directory from the local system to a directory
// on the remote target using scp.
func (t *RemoteTarget) PushFile(srcPath string, dstDir string) error {
	stdout, stderr, exitCode, err := t.runSCPCommand(srcPath, dstDir)
	slog.Debug("push file", slog.String("srcPath", srcPath), slog.String("dstDir", dstDir), slog.String("stdout", stdout), slog.String("stderr", stderr), slog.Int("exitCode", exitCode))
	return err
}

func (t *RemoteTarget) CreateDirectory(baseDir string, targetDir string) (dir string, err error) {
	dir = filepath.Join(baseDir, targetDir)
	cmd := exec.Command("mkdir", dir)
	_, _, _, err = t.RunCommand(context.Background(), cmd, 0)
	return
}

func (t *RemoteTarget) RemoveDirectory(targetDir string) (err error) {
	if targetDir != "" {
		cmd := exec.Command("rm", "-rf", targetDir)
		_, _, _, err = t.RunCommand(context.Background(), cmd, 0)
	}
	return
}

// CanConnect checks if the target is reachable.
func (t *RemoteTarget) CanConnect() bool {
	cmd := exec.Command("exit", "0")
	_, _, _, err := t.RunCommand(context.Background(), cmd, 5)
	return err == nil
}

func (t *RemoteTarget) GetName() (host string) {
	if t.name == "" {
		return t.host
	}
	return t.name
}

func (t *RemoteTarget) prepareSSHFlags(scp bool) (flags []string) {
	flags = []string{
		"-o",
		"UserKnownHostsFile=/dev/null",
		"-o",
		"StrictHostKeyChecking=no",
		"-o",
		"ConnectTimeout=10",
		"-o",
		"ServerAliveInterval=30",
		"-o",
		"ServerAliveCountMax=10", // 30 * 10 = maximum 300 seconds before disconnect on no data
		"-o",
		"LogLevel=ERROR",
		"-o",
		"BatchMode=yes",
	}
	if t.key != "" {
		flags = append(flags,
			"-o",
			"PreferredAuthentications=publickey",
			"-o",
			"PasswordAuthentication=no",
			"-i",
			t.key,
		)
	}
	if t.port != "" {
		if scp {
			flags = append(flags, "-P")
		} else {
			flags = append(flags, "-p")
		}
		flags = append(flags, t.port)
	}
	return
}

func (t *RemoteTarget) prepareSSHCommand(command []string) []string {
	var cmd []string
	cmd = append(cmd, "ssh")
	cmd = append(cmd, t.prepareSSHFlags(false)...)
	if t.user != "" {
		cmd = append(cmd, t.user+"@"+t.host)
	} else {
		cmd = append(cmd, t.host)
	}
	cmd = append(cmd, "--")
	cmd = append(cmd, command...)
	return cmd
}

func (t *RemoteTarget) prepareSCPCommand(src string, dstDir string) []string {
	var cmd []string
	cmd = append(cmd, "scp")
	cmd = append(cmd, t.prepareSSHFlags(true)...)
	fileInfo, err := os.Stat(src)
	if err != nil {
		slog.Error("error getting file info", slog.String("src", src), slog.String("error", err.Error()))
		return nil
	}
	if fileInfo.IsDir() {
		cmd = append(cmd, "-r")
	}
	cmd = append(cmd, src)
	dst := t.host + ":" + dstDir
	if t.user != "" {
		dst = t.user + "@" + dst
	}
	cmd = append(cmd, dst)
	return cmd
}

func (t *RemoteTarget) prepareLocalCommand(cmd *exec.Cmd) *exec.Cmd {
	sshCommand := t.prepareSSHCommand(cmd.Args)
	return exec.Command(sshCommand[0], sshCommand[1:]...) // #nosec G204
}

func (t *RemoteTarget) runSCPCommand(srcPath string, dstDir string) (stdout string, stderr string, exitCode int, err error) {
	scpCommand := t.prepareSCPCommand(srcPath, dstDir)
	if scpCommand == nil {
		err = fmt.Errorf("failed to prepare scp command for %s", srcPath)
		return
	}
	localCommand := exec.Command(scpCommand[0], scpCommand[1:]...) // #nosec G204
	stdout, stderr, exitCode, err = runLocalCommand(context.Background(), localCommand, 0)
	return
}
