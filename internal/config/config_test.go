package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amit-devb/zetten/internal/config"
)

const sample = `
vars:
  GREETING: hello
tasks:
  - name: build
    cmd: go build ./...
    inputs: ["main.go"]
    tags: ["ci"]
  - name: test
    cmd: go test ./...
    depends_on: ["build"]
    ignore_errors: true
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zetten.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hello", cfg.Vars["GREETING"])
	require.Len(t, cfg.Tasks, 2)

	build, ok := cfg.TaskByName("build")
	require.True(t, ok)
	assert.Equal(t, "go build ./...", build.Cmd)
	assert.Equal(t, []string{"ci"}, build.Tags)

	test, ok := cfg.TaskByName("test")
	require.True(t, ok)
	assert.True(t, test.IgnoreErrors)
	assert.Equal(t, []string{"build"}, test.DependsOn)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tasks: [not valid"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
