package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
twelvedata:
  api_key: "td-test-key"
`

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "td-test-key", cfg.TwelveData.APIKey)
	assert.Equal(t, "XAU/USD", cfg.TwelveData.Symbol)
	assert.Equal(t, 800, cfg.TwelveData.DailyLimit)
	assert.Equal(t, "PAXGUSDT", cfg.Binance.Symbol)
	assert.Equal(t, 30, cfg.Agent.SignalIntervalMinutes)
	assert.Equal(t, 5, cfg.Agent.VerifyIntervalMinutes)
	assert.Equal(t, 30, cfg.Agent.MaxTradesPerDay)
	assert.Equal(t, "SAFER", cfg.Risk.Mode)
	assert.Equal(t, 0.01, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 50.0, cfg.Risk.MaxLot)
	assert.Equal(t, 120, cfg.Verify.WindowBars)
	assert.Equal(t, 100.0, cfg.Level.InitialBalance)
	assert.Equal(t, "STRICT", cfg.Level.Mode)
	assert.Equal(t, "configs/profiles.yaml", cfg.Profiles.Path)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
twelvedata:
  api_key: "base-key"
agent:
  history_bars: 50
`)
	main := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
agent:
  history_bars: 200
`)

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "base-key", cfg.TwelveData.APIKey)
	assert.Equal(t, 200, cfg.Agent.HistoryBars)
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  env: prod
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twelvedata.api_key")
}

func TestLoadRejectsBadRiskMode(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", minimalYAML+`
risk:
  mode: "YOLO"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.mode")
}

func TestLoadRejectsBadNewsEvent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", minimalYAML+`
news:
  events:
    - "14:30"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "news.events")
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestTelegramRequiresTokenWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", minimalYAML+`
notify:
  telegram:
    enabled: true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}
