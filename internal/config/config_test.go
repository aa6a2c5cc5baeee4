package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "tipsync.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://www.kicktipp.de", cfg.Kicktipp.BaseURL)
	assert.InDelta(t, 2.0, cfg.Kicktipp.RatePerSec, 0.001)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, -1, cfg.Predict.MaxRepredictions)
	assert.Equal(t, 4, cfg.Predict.MaxConcurrentEntities)
	assert.Equal(t, []string{"standings", "recent-form", "news"}, cfg.Predict.EvidenceDocs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/tipsync
kicktipp:
  scope: my-pool
predict:
  max_repredictions: 2
  excluded_docs:
    - news
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tipsync", cfg.Store.DatabaseURL)
	assert.Equal(t, "my-pool", cfg.Kicktipp.Scope)
	assert.Equal(t, 2, cfg.Predict.MaxRepredictions)
	assert.Equal(t, []string{"news"}, cfg.Predict.ExcludedDocs)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMaxRepredictionsPtr(t *testing.T) {
	unlimited := PredictConfig{MaxRepredictions: -1}
	assert.Nil(t, unlimited.MaxRepredictionsPtr())

	capped := PredictConfig{MaxRepredictions: 3}
	ptr := capped.MaxRepredictionsPtr()
	require.NotNil(t, ptr)
	assert.Equal(t, 3, *ptr)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
}
