package util

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.elf")
	exists, err := FileExists(path)
	if err != nil || exists {
		t.Errorf("expected no file at %s, got exists=%v err=%v", path, exists, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	exists, err = FileExists(path)
	if err != nil || !exists {
		t.Errorf("expected file at %s, got exists=%v err=%v", path, exists, err)
	}
	// a directory is not a file
	if _, err = FileExists(dir); err == nil {
		t.Errorf("expected error for directory %s", dir)
	}
}

func TestDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := DirectoryExists(dir)
	if err != nil || !exists {
		t.Errorf("expected directory at %s, got exists=%v err=%v", dir, exists, err)
	}
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = DirectoryExists(path); err == nil {
		t.Errorf("expected error for file %s", path)
	}
}

func TestIsValidDirectoryName(t *testing.T) {
	valid := []string{"work", "work/bd.build-1", "/tmp/sweep_out"}
	for _, name := range valid {
		if !IsValidDirectoryName(name) {
			t.Errorf("expected %s to be valid", name)
		}
	}
	invalid := []string{"", "work dir", "work;rm"}
	for _, name := range invalid {
		if IsValidDirectoryName(name) {
			t.Errorf("expected %s to be invalid", name)
		}
	}
}

func TestCopyFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bench.elf")
	if err := os.WriteFile(src, []byte("binary"), 0755); err != nil { // #nosec G306
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "staged.elf")
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("expected mode 0755, got %v", info.Mode().Perm())
	}
}

func TestCopyFileIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bench.elf")
	if err := os.WriteFile(src, []byte("binary"), 0644); err != nil {
		t.Fatal(err)
	}
	destDir := filepath.Join(dir, "staging")
	if err := os.Mkdir(destDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, destDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "bench.elf")); err != nil {
		t.Errorf("expected copied file in %s: %v", destDir, err)
	}
}

func TestCopyDirectory(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "a"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "sub", "b"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}
	destDir := t.TempDir()
	if err := CopyDirectory(srcDir, destDir); err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"a", filepath.Join("sub", "b")} {
		if _, err := os.Stat(filepath.Join(destDir, rel)); err != nil {
			t.Errorf("expected %s in copy: %v", rel, err)
		}
	}
}

func TestGeoMean(t *testing.T) {
	vals := []float64{1000, 4000}
	got := GeoMean(vals)
	want := 2000.0
	if math.Abs(got-want) > 0.001 {
		t.Errorf("expected %f, got %f", want, got)
	}
	single := GeoMean([]float64{42})
	if math.Abs(single-42) > 0.001 {
		t.Errorf("expected 42, got %f", single)
	}
}

func TestUniqueAppend(t *testing.T) {
	s := []string{"cycles", "instret"}
	s = UniqueAppend(s, "cycles")
	if len(s) != 2 {
		t.Errorf("expected no duplicate append, got %v", s)
	}
	s = UniqueAppend(s, "dma_requests")
	if len(s) != 3 {
		t.Errorf("expected append of new item, got %v", s)
	}
}

func TestTailLines(t *testing.T) {
	s := "one\ntwo\nthree\nfour\n"
	got := TailLines(s, 2)
	if got != "three\nfour" {
		t.Errorf("expected last two lines, got %q", got)
	}
	got = TailLines("only", 5)
	if got != "only" {
		t.Errorf("expected whole string, got %q", got)
	}
}

func TestIntSliceToStringSlice(t *testing.T) {
	got := IntSliceToStringSlice([]int{1, 2, 4, 8})
	want := []string{"1", "2", "4", "8"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
