package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Viper reads config.yaml from the working directory; run from an
	// empty one so only defaults and env apply.
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(8192), cfg.Anthropic.MaxTokens)
	assert.Equal(t, int64(8), cfg.Anthropic.WebSearchMaxUses)
	assert.Equal(t, "competitor_research_json", cfg.Research.OutputDir)
	assert.Equal(t, 5, cfg.Research.Concurrency)
	assert.Equal(t, 30, cfg.Research.LookbackDays)
	assert.Equal(t, 3, cfg.Research.MaxAttempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("COMPINTEL_ANTHROPIC_KEY", "sk-test")
	t.Setenv("COMPINTEL_RESEARCH_CONCURRENCY", "9")
	t.Setenv("COMPINTEL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 9, cfg.Research.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := `
anthropic:
  key: sk-from-file
notion:
  token: secret
  database_id: db-1
  summary_page_id: page-1
research:
  company_context: We sell widgets.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(file), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.Anthropic.Key)
	assert.Equal(t, "We sell widgets.", cfg.Research.CompanyContext)
	assert.NoError(t, cfg.ValidateResearch())
	assert.NoError(t, cfg.ValidatePublish())
}

func TestValidateResearch(t *testing.T) {
	t.Parallel()

	var cfg Config
	assert.Error(t, cfg.ValidateResearch())

	cfg.Anthropic.Key = "sk-test"
	assert.NoError(t, cfg.ValidateResearch())
}

func TestValidatePublish(t *testing.T) {
	t.Parallel()

	var cfg Config
	assert.ErrorContains(t, cfg.ValidatePublish(), "notion.token")

	cfg.Notion.Token = "secret"
	assert.ErrorContains(t, cfg.ValidatePublish(), "database_id")

	cfg.Notion.DatabaseID = "db-1"
	assert.ErrorContains(t, cfg.ValidatePublish(), "summary_page_id")

	cfg.Notion.SummaryPageID = "page-1"
	assert.NoError(t, cfg.ValidatePublish())
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}
