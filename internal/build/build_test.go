package build

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsweep/internal/config"
)

func testConfig(value int) config.Config {
	return config.Config{Assignments: []config.Assignment{
		{Name: config.DefaultParameterName, Value: value},
	}}
}

func TestStagedName(t *testing.T) {
	assert.Equal(t, "aha-mont64.DMA_INFLIGHT_REQUESTS_4.elf", StagedName("aha-mont64", testConfig(4)))
}

func TestKeyStable(t *testing.T) {
	suiteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(suiteDir, "main.c"), []byte("int main(){}"), 0o644))

	key1, err := Key(suiteDir, nil, testConfig(4).DefineArgs())
	require.NoError(t, err)
	key2, err := Key(suiteDir, nil, testConfig(4).DefineArgs())
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestKeyChangesWithInputs(t *testing.T) {
	suiteDir := t.TempDir()
	srcPath := filepath.Join(suiteDir, "main.c")
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){}"), 0o644))

	base, err := Key(suiteDir, nil, testConfig(4).DefineArgs())
	require.NoError(t, err)

	// different parameter value
	otherValue, err := Key(suiteDir, nil, testConfig(8).DefineArgs())
	require.NoError(t, err)
	assert.NotEqual(t, base, otherValue)

	// different configure arguments
	otherArgs, err := Key(suiteDir, []string{"-DCMAKE_BUILD_TYPE=Release"}, testConfig(4).DefineArgs())
	require.NoError(t, err)
	assert.NotEqual(t, base, otherArgs)

	// modified source
	require.NoError(t, os.WriteFile(srcPath, []byte("int main(){return 0;}"), 0o644))
	require.NoError(t, os.Chtimes(srcPath, time.Now(), time.Now().Add(time.Second)))
	modified, err := Key(suiteDir, nil, testConfig(4).DefineArgs())
	require.NoError(t, err)
	assert.NotEqual(t, base, modified)
}

func TestKeyIgnoresBuildDirs(t *testing.T) {
	suiteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(suiteDir, "main.c"), []byte("int main(){}"), 0o644))
	base, err := Key(suiteDir, nil, nil)
	require.NoError(t, err)

	buildDir := filepath.Join(suiteDir, "build")
	require.NoError(t, os.Mkdir(buildDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "scratch.o"), []byte("obj"), 0o644))
	withBuild, err := Key(suiteDir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, base, withBuild)
}

func TestStage(t *testing.T) {
	builder := &Builder{
		Benchmark: "aha-mont64",
		StageDir:  filepath.Join(t.TempDir(), "stage"),
	}
	srcPath := filepath.Join(t.TempDir(), "aha-mont64")
	require.NoError(t, os.WriteFile(srcPath, []byte("binary"), 0o755))

	stagedPath, err := builder.stage(srcPath, testConfig(2))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(builder.StageDir, "aha-mont64.DMA_INFLIGHT_REQUESTS_2.elf"), stagedPath)
	data, err := os.ReadFile(stagedPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary"), data)
	// no temp file left behind
	_, err = os.Stat(stagedPath + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFindBinary(t *testing.T) {
	buildDir := t.TempDir()
	nested := filepath.Join(buildDir, "src", "aha-mont64")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	wantPath := filepath.Join(nested, "aha-mont64")
	require.NoError(t, os.WriteFile(wantPath, []byte("elf"), 0o755))

	found, err := findBinary(buildDir, "aha-mont64")
	require.NoError(t, err)
	assert.Equal(t, wantPath, found)

	_, err = findBinary(buildDir, "missing-benchmark")
	assert.Error(t, err)
}

func TestBuildUsesCache(t *testing.T) {
	// prepopulate the cache with the artifact for this exact key, then
	// confirm Build stages from cache without running cmake (the cmake
	// executable here would fail instantly if invoked)
	suiteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(suiteDir, "main.c"), []byte("int main(){}"), 0o644))
	cfg := testConfig(4)
	key, err := Key(suiteDir, nil, cfg.DefineArgs())
	require.NoError(t, err)

	cacheDir := t.TempDir()
	cacheEntry := filepath.Join(cacheDir, key)
	require.NoError(t, os.MkdirAll(cacheEntry, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheEntry, "aha-mont64"), []byte("cached"), 0o755))

	builder := &Builder{
		CMake:     "/nonexistent/cmake",
		SuiteDir:  suiteDir,
		Benchmark: "aha-mont64",
		BuildRoot: t.TempDir(),
		CacheDir:  cacheDir,
		StageDir:  filepath.Join(t.TempDir(), "stage"),
	}
	artifact, err := builder.Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, artifact.FromCache)
	assert.Equal(t, key, artifact.CacheKey)
	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), data)
}
