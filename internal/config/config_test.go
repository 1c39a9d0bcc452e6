package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
general:
  instance_id: test-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-1", cfg.General.InstanceID)
	assert.Equal(t, "solana", cfg.Ingest.Chain)
	assert.Equal(t, 30, cfg.Ingest.PollIntervalSeconds)
	assert.Equal(t, 300, cfg.Strategy.Limits.AlertCooldownSeconds)
	assert.Equal(t, 3, cfg.Strategy.Limits.TopAlertsPerCycle)
	assert.Equal(t, 70.0, cfg.Strategy.Thresholds.RiskAlertLevel)
	assert.Equal(t, -25.0, cfg.Strategy.Thresholds.StopLossPct)
	assert.Equal(t, 10.0, cfg.SafeMode.HysteresisMarginPct)
	assert.Equal(t, 50, cfg.Watch.MaxConcurrent)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "secret-token")
	path := writeTempConfig(t, `
telegram:
  bot_token: ${TEST_BOT_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "general: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsBadPollInterval(t *testing.T) {
	cfg := Default()
	cfg.Ingest.PollIntervalSeconds = 0

	assert.Error(t, cfg.Validate())
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestStrategyValidate(t *testing.T) {
	s := DefaultStrategy()
	require.NoError(t, s.Validate())

	s.Thresholds.RiskAlertLevel = 0
	assert.Error(t, s.Validate())

	s = DefaultStrategy()
	s.Thresholds.StopLossPct = 5
	assert.Error(t, s.Validate())

	s = DefaultStrategy()
	s.Limits.FetchLimit = 0
	assert.Error(t, s.Validate())
}

func TestStore_SwapBumpsVersion(t *testing.T) {
	st := NewStore(DefaultStrategy())
	assert.Equal(t, int64(1), st.Current().Version)

	next := *st.Current()
	next.Filters.MinLiquidityUSD = 2500
	require.NoError(t, st.Swap(next))

	assert.Equal(t, int64(2), st.Current().Version)
	assert.Equal(t, 2500.0, st.Current().Filters.MinLiquidityUSD)
}

func TestStore_SwapRejectsInvalid(t *testing.T) {
	st := NewStore(DefaultStrategy())

	bad := *st.Current()
	bad.Thresholds.StopLossPct = 10
	assert.Error(t, st.Swap(bad))

	assert.Equal(t, int64(1), st.Current().Version, "failed swap keeps the prior snapshot")
	assert.Equal(t, -25.0, st.Current().Thresholds.StopLossPct)
}

func TestStore_Override(t *testing.T) {
	st := NewStore(DefaultStrategy())

	require.NoError(t, st.Override("min_liquidity_usd", "5000"))
	assert.Equal(t, 5000.0, st.Current().Filters.MinLiquidityUSD)
	assert.Equal(t, int64(2), st.Current().Version)

	require.NoError(t, st.Override("strict_filtering", "true"))
	assert.True(t, st.Current().Filters.StrictFiltering)

	require.NoError(t, st.Override("top_alerts_per_cycle", "5"))
	assert.Equal(t, 5, st.Current().Limits.TopAlertsPerCycle)
}

func TestStore_OverrideRejectsUnknownField(t *testing.T) {
	st := NewStore(DefaultStrategy())

	err := st.Override("no_such_field", "1")
	assert.Error(t, err)
	assert.Equal(t, int64(1), st.Current().Version)
}

func TestStore_OverrideRejectsUnparseableValue(t *testing.T) {
	st := NewStore(DefaultStrategy())

	assert.Error(t, st.Override("min_liquidity_usd", "lots"))
	assert.Error(t, st.Override("strict_filtering", "maybe"))
	assert.Error(t, st.Override("fetch_limit", "1.5"))
	assert.Equal(t, int64(1), st.Current().Version)
}

func TestStore_OverrideValidatesResult(t *testing.T) {
	st := NewStore(DefaultStrategy())

	// Parses fine but fails strategy validation.
	err := st.Override("stop_loss_pct", "10")
	assert.Error(t, err)
	assert.Equal(t, -25.0, st.Current().Thresholds.StopLossPct)
}

func TestStore_ConcurrentOverridesAllApply(t *testing.T) {
	st := NewStore(DefaultStrategy())

	fields := map[string]string{
		"min_liquidity_usd":      "2000",
		"min_volume_h1":          "600",
		"max_fdv":                "9000000",
		"min_fdv":                "10000",
		"max_age_hours":          "48",
		"risk_alert_level":       "65",
		"take_profit_pct":        "40",
		"alert_cooldown_seconds": "120",
	}

	var wg sync.WaitGroup
	for field, value := range fields {
		wg.Add(1)
		go func(field, value string) {
			defer wg.Done()
			require.NoError(t, st.Override(field, value))
		}(field, value)
	}
	wg.Wait()

	// Every override must survive: no read-modify-write may erase another.
	cur := st.Current()
	assert.Equal(t, 2000.0, cur.Filters.MinLiquidityUSD)
	assert.Equal(t, 600.0, cur.Filters.MinVolumeH1)
	assert.Equal(t, 9_000_000.0, cur.Filters.MaxFDV)
	assert.Equal(t, 10_000.0, cur.Filters.MinFDV)
	assert.Equal(t, 48.0, cur.Filters.MaxAgeHours)
	assert.Equal(t, 65.0, cur.Thresholds.RiskAlertLevel)
	assert.Equal(t, 40.0, cur.Thresholds.TakeProfitPct)
	assert.Equal(t, 120, cur.Limits.AlertCooldownSeconds)
	assert.Equal(t, int64(1+len(fields)), cur.Version, "each applied override bumps the version exactly once")
}

func TestStore_ReadersSeeConsistentSnapshot(t *testing.T) {
	st := NewStore(DefaultStrategy())
	before := st.Current()

	next := *before
	next.Filters.MinLiquidityUSD = 9999
	require.NoError(t, st.Swap(next))

	// The old pointer is unchanged; readers mid-cycle keep a stable view.
	assert.Equal(t, 1000.0, before.Filters.MinLiquidityUSD)
}
