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
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "live"
log_level = "debug"

[feed]
source = "ws"
ws_url = "wss://stream.example.com/ws"
symbols = ["btcusdt", "ethusdt"]

[controller]
source_tag = "scalper"
min_expected_return = 0.5

[rate_limits]
orders_per_minute = 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, "scalper", cfg.Controller.SourceTag)
	assert.InDelta(t, 0.5, cfg.Controller.MinExpectedReturn, 1e-9)
	assert.Equal(t, 30, cfg.RateLimits.OrdersPerMinute)
	assert.Equal(t, []string{"btcusdt", "ethusdt"}, cfg.Feed.Symbols)

	// Untouched sections keep their defaults.
	assert.Equal(t, 200, cfg.Controller.StatsLookback)
	assert.Equal(t, 1200, cfg.RateLimits.GlobalPerMinute)
	assert.InDelta(t, 14.0, cfg.Expectancy.DecayHalfLifeDays, 1e-9)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[controller]
source_tag = "from-file"
`)

	t.Setenv("TRADECORE_CONTROLLER_SOURCE_TAG", "from-env")
	t.Setenv("TRADECORE_RATE_LIMITS_ORDERS_PER_MINUTE", "7")
	t.Setenv("TRADECORE_REDIS_ENABLED", "true")
	t.Setenv("TRADECORE_FEED_SYMBOLS", "solusdt, dogeusdt")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Controller.SourceTag)
	assert.Equal(t, 7, cfg.RateLimits.OrdersPerMinute)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"solusdt", "dogeusdt"}, cfg.Feed.Symbols)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.Feed.Source = "carrier-pigeon"
	cfg.Controller.SourceTag = ""
	cfg.Expectancy.DecayHalfLifeDays = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "feed: unknown source")
	assert.Contains(t, err.Error(), "source_tag")
	assert.Contains(t, err.Error(), "decay_half_life_days")
}

func TestValidateBusSourceRequiresRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.Source = "bus"
	cfg.Redis.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis must be enabled")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)

	// Original is untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
