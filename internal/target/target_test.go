package target

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalTargetRunCommand(t *testing.T) {
	tgt := NewLocalTarget()
	if tgt.GetName() == "" {
		t.Error("expected non-empty target name")
	}
	if !tgt.CanConnect() {
		t.Error("local target should always connect")
	}
	stdout, stderr, exitCode, err := tgt.RunCommand(context.Background(), exec.Command("echo", "hello"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "hello\n" {
		t.Errorf("unexpected stdout: got %q, want %q", stdout, "hello\n")
	}
	if stderr != "" {
		t.Errorf("unexpected stderr: got %q", stderr)
	}
	if exitCode != 0 {
		t.Errorf("unexpected exit code: got %d, want 0", exitCode)
	}
}

func TestLocalTargetRunCommandNonZeroExit(t *testing.T) {
	tgt := NewLocalTarget()
	_, _, exitCode, err := tgt.RunCommand(context.Background(), exec.Command("false"), 0)
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if exitCode != 1 {
		t.Errorf("unexpected exit code: got %d, want 1", exitCode)
	}
}

func TestLocalTargetRunCommandTimeout(t *testing.T) {
	tgt := NewLocalTarget()
	_, _, _, err := tgt.RunCommand(context.Background(), exec.Command("sleep", "10"), 1)
	if err == nil {
		t.Fatal("expected error from timed-out command")
	}
}

func TestLocalTargetTempDirectory(t *testing.T) {
	tgt := NewLocalTarget()
	tempDir, err := tgt.CreateTempDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tgt.GetTempDirectory() != tempDir {
		t.Errorf("unexpected temp dir: got %q, want %q", tgt.GetTempDirectory(), tempDir)
	}
	// a second call returns the same directory
	again, err := tgt.CreateTempDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != tempDir {
		t.Errorf("expected same temp dir, got %q and %q", tempDir, again)
	}
	if err := tgt.RemoveTempDirectory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tgt.GetTempDirectory() != "" {
		t.Error("expected empty temp dir after removal")
	}
}

func TestRemoteTargetCommandPreparation(t *testing.T) {
	tgt := NewRemoteTarget("farm1", "sim.example.com", "2222", "vcsuser", "/home/vcsuser/.ssh/id_rsa")
	if tgt.GetName() != "farm1" {
		t.Errorf("unexpected name: %q", tgt.GetName())
	}
	local := tgt.prepareLocalCommand(exec.Command("make", "-C", "/work/sim", "run"))
	args := strings.Join(local.Args, " ")
	if local.Args[0] != "ssh" {
		t.Errorf("expected ssh command, got %q", local.Args[0])
	}
	for _, want := range []string{"vcsuser@sim.example.com", "-p 2222", "-i /home/vcsuser/.ssh/id_rsa", "make -C /work/sim run"} {
		if !strings.Contains(args, want) {
			t.Errorf("prepared command missing %q: %s", want, args)
		}
	}
	srcFile := filepath.Join(t.TempDir(), "bench.elf")
	if err := os.WriteFile(srcFile, []byte("elf"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scp := tgt.prepareSCPCommand(srcFile, "/work/stage")
	scpArgs := strings.Join(scp, " ")
	if scp[0] != "scp" {
		t.Errorf("expected scp command, got %q", scp[0])
	}
	if !strings.Contains(scpArgs, "vcsuser@sim.example.com:/work/stage") {
		t.Errorf("scp command missing destination: %s", scpArgs)
	}
	if !strings.Contains(scpArgs, "-P 2222") {
		t.Errorf("scp command missing port: %s", scpArgs)
	}
}
