package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "umlgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "pyreverse", cfg.Generator.Command)
	assert.Equal(t, "png", cfg.Generator.Format)
	assert.Equal(t, "uml", cfg.Diagrams.Dir)
	assert.Equal(t, 1000, cfg.Diagrams.MaxWidth)
	assert.Equal(t, "Documentation", cfg.Site.Title)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: My Docs\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "My Docs", cfg.Site.Title)
	assert.Equal(t, "pyreverse", cfg.Generator.Command)
	assert.Equal(t, 1000, cfg.Diagrams.MaxWidth)

	timeout, err := cfg.GeneratorTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "noexist.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("UMLGEN_TEST_COMMAND", "plantuml")
	path := writeConfig(t, "generator:\n  command: ${UMLGEN_TEST_COMMAND}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plantuml", cfg.Generator.Command)
}

func TestLoadRejectsInvalidFormat(t *testing.T) {
	path := writeConfig(t, "generator:\n  format: jpeg\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid generator format")
}

func TestLoadRejectsBadDurations(t *testing.T) {
	path := writeConfig(t, "generator:\n  timeout: soon\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator.timeout")

	path = writeConfig(t, "watch:\n  rebuild_interval: often\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild_interval")
}

func TestRebuildIntervalEmptyMeansDisabled(t *testing.T) {
	cfg := Default()
	interval, err := cfg.RebuildInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), interval)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umlgen.yaml")
	require.NoError(t, Init(path, false))

	// The generated example must itself be loadable.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pyreverse", cfg.Generator.Command)

	err = Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Init(path, true))
}
