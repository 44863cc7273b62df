package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ValidMinimalConfig(t *testing.T) {
	path := writeConfig(t, `
github_token: tok123
repo_full_name: acme/widgets
branches_dir: /tmp/branches
commands:
  build: "make"
  start: "make serve --port {port}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok123", cfg.GithubToken)
	assert.Equal(t, FilterExclude, cfg.FilterMode)
	assert.True(t, *cfg.ClearRedundantLocalBranches)

	builds, err := cfg.Commands.BuildList()
	require.NoError(t, err)
	assert.Equal(t, []string{"make"}, builds)
}

func TestLoad_BuildAsList(t *testing.T) {
	path := writeConfig(t, `
github_token: tok123
repo_full_name: acme/widgets
branches_dir: /tmp/branches
commands:
  build:
    - "npm install"
    - "npm run build"
  start: "npm start"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	builds, err := cfg.Commands.BuildList()
	require.NoError(t, err)
	assert.Equal(t, []string{"npm install", "npm run build"}, builds)
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	path := writeConfig(t, `
repo_full_name: acme/widgets
branches_dir: /tmp/branches
`)

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "github_token", cfgErr.Key)
}

func TestLoad_InvalidFilterMode(t *testing.T) {
	path := writeConfig(t, `
github_token: tok123
repo_full_name: acme/widgets
branches_dir: /tmp/branches
filter_mode: sometimes
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLogLevels_All(t *testing.T) {
	path := writeConfig(t, `
github_token: tok
repo_full_name: acme/widgets
branches_dir: /tmp/branches
enabled_log_levels: all
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	levels, err := cfg.LogLevels()
	require.NoError(t, err)
	assert.Nil(t, levels)
}

func TestLogLevels_ExplicitList(t *testing.T) {
	path := writeConfig(t, `
github_token: tok
repo_full_name: acme/widgets
branches_dir: /tmp/branches
enabled_log_levels:
  - info
  - error
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	levels, err := cfg.LogLevels()
	require.NoError(t, err)
	assert.Equal(t, []string{"info", "error"}, levels)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
