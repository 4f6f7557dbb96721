package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "barcode", cfg.Enrich.KeyColumn)
	assert.Equal(t, 25, cfg.Enrich.BatchSize)
	assert.Equal(t, 2, cfg.Sources.Attempts)
	assert.Equal(t, 1000, cfg.Sources.DelayMS)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENRICH_ENRICH_BATCH_SIZE", "50")
	t.Setenv("ENRICH_SOURCES_ATTEMPTS", "4")
	t.Setenv("ENRICH_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Enrich.BatchSize)
	assert.Equal(t, 4, cfg.Sources.Attempts)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, "config.yaml", `
enrich:
  key_column: upc
  batch_size: 10
sources:
  attempts: 3
log:
  level: debug
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "upc", cfg.Enrich.KeyColumn)
	assert.Equal(t, 10, cfg.Enrich.BatchSize)
	assert.Equal(t, 3, cfg.Sources.Attempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1000, cfg.Sources.DelayMS)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	assert.Error(t, err)
}
