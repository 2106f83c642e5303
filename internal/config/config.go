// Package config defines the top-level configuration for tradecore and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRADECORE_* environment variables.
type Config struct {
	Feed       FeedConfig       `toml:"feed"`
	Controller ControllerConfig `toml:"controller"`
	RateLimits RateLimitConfig  `toml:"rate_limits"`
	Expectancy ExpectancyConfig `toml:"expectancy"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// FeedConfig holds market-data feed parameters.
type FeedConfig struct {
	// Source selects the tick source: "ws" dials the exchange WebSocket,
	// "bus" consumes relayed ticks from Redis.
	Source string `toml:"source"`

	WsURL   string   `toml:"ws_url"`
	Symbols []string `toml:"symbols"`

	// RepublishTicks mirrors locally received ticks onto the Redis bus so
	// other processes can consume them.
	RepublishTicks bool `toml:"republish_ticks"`
}

// ControllerConfig holds the decision-loop parameters.
type ControllerConfig struct {
	SourceTag         string  `toml:"source_tag"`
	MinExpectedReturn float64 `toml:"min_expected_return"`
	StatsLookback     int     `toml:"stats_lookback"`
	SignalBuffer      int     `toml:"signal_buffer"`
}

// RateLimitConfig holds the per-minute capacities for the global budget and
// each endpoint group.
type RateLimitConfig struct {
	GlobalPerMinute     int `toml:"global_per_minute"`
	OrdersPerMinute     int `toml:"orders_per_minute"`
	AccountPerMinute    int `toml:"account_per_minute"`
	MarketDataPerMinute int `toml:"market_data_per_minute"`
}

// ExpectancyConfig holds the estimator tunables.
type ExpectancyConfig struct {
	FeeSlippagePenalty float64 `toml:"fee_slippage_penalty"`
	DecayHalfLifeDays  float64 `toml:"decay_half_life_days"`
	ConfidenceLowNEff  float64 `toml:"confidence_low_n_eff"`
	ConfidenceHighNEff float64 `toml:"confidence_high_n_eff"`
	ShrinkageStrength  float64 `toml:"shrinkage_strength"`
	DefaultStopLossPct float64 `toml:"default_stop_loss_pct"`
	DefaultTargetRR    float64 `toml:"default_target_rr"`
}

// PostgresConfig holds PostgreSQL connection parameters for the trade-stats
// store. Enabled=false runs with the in-memory stats reader.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the tick bus and the
// shared budget. Enabled=false runs without the bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the closed
// position archive. Enabled=false skips archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			Source:         "ws",
			WsURL:          "wss://stream.example.com/ws",
			Symbols:        []string{"BTCUSDT"},
			RepublishTicks: false,
		},
		Controller: ControllerConfig{
			SourceTag:         "default",
			MinExpectedReturn: 0,
			StatsLookback:     200,
			SignalBuffer:      256,
		},
		RateLimits: RateLimitConfig{
			GlobalPerMinute:     1200,
			OrdersPerMinute:     60,
			AccountPerMinute:    120,
			MarketDataPerMinute: 600,
		},
		Expectancy: ExpectancyConfig{
			FeeSlippagePenalty: 0,
			DecayHalfLifeDays:  14,
			ConfidenceLowNEff:  5,
			ConfidenceHighNEff: 20,
			ShrinkageStrength:  10,
			DefaultStopLossPct: 0.01,
			DefaultTargetRR:    2,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "tradecore",
			User:          "tradecore",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tradecore-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":  true,
	"paper": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFeedSources enumerates the accepted values for FeedConfig.Source.
var validFeedSources = map[string]bool{
	"ws":  true,
	"bus": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, paper)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if !validFeedSources[strings.ToLower(c.Feed.Source)] {
		errs = append(errs, fmt.Sprintf("feed: unknown source %q (valid: ws, bus)", c.Feed.Source))
	}
	if strings.ToLower(c.Feed.Source) == "ws" && c.Feed.WsURL == "" {
		errs = append(errs, "feed: ws_url must not be empty when source is ws")
	}
	if strings.ToLower(c.Feed.Source) == "bus" && !c.Redis.Enabled {
		errs = append(errs, "feed: redis must be enabled when source is bus")
	}
	if len(c.Feed.Symbols) == 0 {
		errs = append(errs, "feed: at least one symbol is required")
	}
	if c.Feed.RepublishTicks && !c.Redis.Enabled {
		errs = append(errs, "feed: redis must be enabled when republish_ticks is set")
	}

	// Controller
	if c.Controller.SourceTag == "" {
		errs = append(errs, "controller: source_tag must not be empty")
	}
	if c.Controller.StatsLookback < 1 {
		errs = append(errs, "controller: stats_lookback must be >= 1")
	}
	if c.Controller.SignalBuffer < 1 {
		errs = append(errs, "controller: signal_buffer must be >= 1")
	}

	// RateLimits
	if c.RateLimits.GlobalPerMinute < 0 {
		errs = append(errs, "rate_limits: global_per_minute must be >= 0")
	}
	if c.RateLimits.OrdersPerMinute < 0 {
		errs = append(errs, "rate_limits: orders_per_minute must be >= 0")
	}
	if c.RateLimits.AccountPerMinute < 0 {
		errs = append(errs, "rate_limits: account_per_minute must be >= 0")
	}
	if c.RateLimits.MarketDataPerMinute < 0 {
		errs = append(errs, "rate_limits: market_data_per_minute must be >= 0")
	}

	// Expectancy
	if c.Expectancy.DecayHalfLifeDays <= 0 {
		errs = append(errs, "expectancy: decay_half_life_days must be > 0")
	}
	if c.Expectancy.ShrinkageStrength <= 0 {
		errs = append(errs, "expectancy: shrinkage_strength must be > 0")
	}
	if c.Expectancy.ConfidenceLowNEff > c.Expectancy.ConfidenceHighNEff {
		errs = append(errs, "expectancy: confidence_low_n_eff must not exceed confidence_high_n_eff")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
