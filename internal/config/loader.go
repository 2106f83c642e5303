package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADECORE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADECORE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.Source, "TRADECORE_FEED_SOURCE")
	setStr(&cfg.Feed.WsURL, "TRADECORE_FEED_WS_URL")
	setStringSlice(&cfg.Feed.Symbols, "TRADECORE_FEED_SYMBOLS")
	setBool(&cfg.Feed.RepublishTicks, "TRADECORE_FEED_REPUBLISH_TICKS")

	// ── Controller ──
	setStr(&cfg.Controller.SourceTag, "TRADECORE_CONTROLLER_SOURCE_TAG")
	setFloat64(&cfg.Controller.MinExpectedReturn, "TRADECORE_CONTROLLER_MIN_EXPECTED_RETURN")
	setInt(&cfg.Controller.StatsLookback, "TRADECORE_CONTROLLER_STATS_LOOKBACK")
	setInt(&cfg.Controller.SignalBuffer, "TRADECORE_CONTROLLER_SIGNAL_BUFFER")

	// ── Rate limits ──
	setInt(&cfg.RateLimits.GlobalPerMinute, "TRADECORE_RATE_LIMITS_GLOBAL_PER_MINUTE")
	setInt(&cfg.RateLimits.OrdersPerMinute, "TRADECORE_RATE_LIMITS_ORDERS_PER_MINUTE")
	setInt(&cfg.RateLimits.AccountPerMinute, "TRADECORE_RATE_LIMITS_ACCOUNT_PER_MINUTE")
	setInt(&cfg.RateLimits.MarketDataPerMinute, "TRADECORE_RATE_LIMITS_MARKET_DATA_PER_MINUTE")

	// ── Expectancy ──
	setFloat64(&cfg.Expectancy.FeeSlippagePenalty, "TRADECORE_EXPECTANCY_FEE_SLIPPAGE_PENALTY")
	setFloat64(&cfg.Expectancy.DecayHalfLifeDays, "TRADECORE_EXPECTANCY_DECAY_HALF_LIFE_DAYS")
	setFloat64(&cfg.Expectancy.ConfidenceLowNEff, "TRADECORE_EXPECTANCY_CONFIDENCE_LOW_N_EFF")
	setFloat64(&cfg.Expectancy.ConfidenceHighNEff, "TRADECORE_EXPECTANCY_CONFIDENCE_HIGH_N_EFF")
	setFloat64(&cfg.Expectancy.ShrinkageStrength, "TRADECORE_EXPECTANCY_SHRINKAGE_STRENGTH")
	setFloat64(&cfg.Expectancy.DefaultStopLossPct, "TRADECORE_EXPECTANCY_DEFAULT_STOP_LOSS_PCT")
	setFloat64(&cfg.Expectancy.DefaultTargetRR, "TRADECORE_EXPECTANCY_DEFAULT_TARGET_RR")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TRADECORE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TRADECORE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TRADECORE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRADECORE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRADECORE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRADECORE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRADECORE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRADECORE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRADECORE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRADECORE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRADECORE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRADECORE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRADECORE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADECORE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADECORE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADECORE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADECORE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADECORE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TRADECORE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TRADECORE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADECORE_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADECORE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADECORE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADECORE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADECORE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADECORE_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRADECORE_MODE")
	setStr(&cfg.LogLevel, "TRADECORE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
