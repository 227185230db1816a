/*
Package target provides a way to run build and simulation commands on local
and remote systems.
*/
package target

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"simsweep/internal/util"
)

// Target represents a machine where build and simulation commands can be run.
// Implementations should provide methods to run commands, check connectivity,
// and move files, for the specific type of target (local or remote).
type Target interface {
	// CanConnect checks if a connection can be established with the target.
	CanConnect() bool

	// GetName returns the name of the target system.
	GetName() (name string)

	// RunCommand runs the specified command on the target.
	// The timeout is in seconds; zero means no timeout. The context cancels
	// the command when the orchestrator shuts down.
	// It returns the standard output, standard error, exit code, and any error that occurred.
	RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error)

	// PushFile transfers a file or directory from the local system to the target.
	PushFile(srcPath string, dstPath string) error

	// CreateDirectory creates a directory on the target under the specified base directory.
	// It returns the path of the created directory and any error that occurred.
	CreateDirectory(baseDir string, targetDir string) (dir string, err error)

	// CreateTempDirectory creates a temporary directory on the target under the given root.
	CreateTempDirectory(rootDir string) (tempDir string, err error)

	// GetTempDirectory returns the path of the temporary directory on the target. It will be
	// empty if the temporary directory has not been created yet.
	GetTempDirectory() string

	// RemoveTempDirectory removes the temporary directory on the target.
	RemoveTempDirectory() error

	// RemoveDirectory removes a directory from the target at the specified path.
	RemoveDirectory(targetDir string) error
}

// LocalTarget runs commands on the host where simsweep itself runs.
type LocalTarget struct {
	host    string
	tempDir string
}

// RemoteTarget runs commands on a remote host over ssh, e.g., a simulation
// farm machine holding the VCS license.
type RemoteTarget struct {
	name    string
	host    string
	port    string
	user    string
	key     string
	tempDir string
}

// NewLocalTarget creates a new LocalTarget
func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	return &LocalTarget{host: hostName}
}

// NewRemoteTarget creates a new RemoteTarget with the provided connection details.
func NewRemoteTarget(name string, host string, port string, user string, key string) *RemoteTarget {
	return &RemoteTarget{
		name: name,
		host: host,
		port: port,
		user: user,
		key:  key,
	}
}

// RunCommand executes the given command locally and returns the standard output,
// standard error, exit code, and any error that occurred.
func (t *LocalTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	return runLocalCommand(ctx, cmd, timeout)
}

// CreateTempDirectory creates a temporary directory under the specified root directory.
// If the root directory is not specified, the temporary directory will be created in the
// system default temp location. It returns the path of the created temporary directory.
func (t *LocalTarget) CreateTempDirectory(rootDir string) (tempDir string, err error) {
	if t.tempDir != "" {
		return t.tempDir, nil
	}
	temp, err := os.MkdirTemp(rootDir, "simsweep.tmp.")
	if err != nil {
		return
	}
	tempDir, err = util.AbsPath(temp)
	if err != nil {
		return
	}
	t.tempDir = tempDir
	return
}

// RemoveTempDirectory removes the temporary directory created by CreateTempDirectory.
func (t *LocalTarget) RemoveTempDirectory() (err error) {
	if t.tempDir != "" {
		err = t.RemoveDirectory(t.tempDir)
		if err == nil {
			t.tempDir = ""
		}
	}
	return
}

func (t *LocalTarget) GetTempDirectory() string {
	return t.tempDir
}

// PushFile copies a file or directory from the source path to the destination path.
// If the source path points to a directory, it creates the corresponding directory
// at the destination and recursively copies its contents.
func (t *LocalTarget) PushFile(srcPath string, dstPath string) (err error) {
	srcFileStat, err := os.Stat(srcPath)
	if err != nil {
		return
	}
	if srcFileStat.IsDir() {
		newDstDir := filepath.Join(dstPath, filepath.Base(srcPath))
		err = util.CreateDirectoryIfNotExists(newDstDir, 0700)
		if err != nil {
			return
		}
		err = util.CopyDirectory(srcPath, newDstDir)
		return
	}
	err = util.CopyFile(srcPath, dstPath)
	return
}

// CreateDirectory creates a new directory under the specified base directory.
// It returns the full path of the created directory and any error encountered.
func (t *LocalTarget) CreateDirectory(baseDir string, targetDir string) (dir string, err error) {
	dir = filepath.Join(baseDir, targetDir)
	err = os.Mkdir(dir, 0700)
	return
}

// RemoveDirectory removes the specified target directory and all its contents.
func (t *LocalTarget) RemoveDirectory(targetDir string) (err error) {
	if targetDir != "" {
		err = os.RemoveAll(targetDir)
	}
	return
}

// CanConnect checks if the local target can establish a connection (always true).
func (t *LocalTarget) CanConnect() bool {
	return true
}

// GetName returns the name of the Target.
func (t *LocalTarget) GetName() (host string) {
	return t.host
}
