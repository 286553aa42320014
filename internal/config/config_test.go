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

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 60, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, 2.0, cfg.Anthropic.RequestsPerSec)
	assert.Equal(t, "pdftotext", cfg.Preprocess.PdfToTextPath)
	assert.Equal(t, 2000, cfg.Preprocess.PreviewChars)
	assert.Equal(t, 2000, cfg.Preprocess.CellBudget)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Empty(t, cfg.Anthropic.Key)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTAKE_SERVER_PORT", "9090")
	t.Setenv("INTAKE_ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929")
	t.Setenv("INTAKE_STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "config.yaml", "server:\n  port: 7070\nlog:\n  format: console\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "console", cfg.Log.Format)
	// Unset keys keep their defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "console"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	assert.Error(t, err)
}
