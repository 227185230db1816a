package build

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// dirs that never affect the produced binary
var skippedDirs = map[string]bool{
	".git":  true,
	"build": true,
	"bd":    true,
}

// Key computes the artifact cache key for one configuration: a SHA-256 over
// the source manifest (relative path, size, mtime of every tracked file)
// plus the configure arguments and the swept parameter assignments. Any
// change to the sources or the configuration yields a new key.
func Key(suiteDir string, extraArgs []string, defineArgs []string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(suiteDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(suiteDir, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s|%d|%d\n", rel, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "args|%s\n", strings.Join(extraArgs, " "))
	fmt.Fprintf(h, "defines|%s\n", strings.Join(defineArgs, " "))
	return hex.EncodeToString(h.Sum(nil)), nil
}
