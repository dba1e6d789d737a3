// Package config defines the top-level configuration for weatheredge and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by WEDGE_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Weather    WeatherConfig    `toml:"weather"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
}

// WeatherConfig selects the weather data source and holds its credentials.
type WeatherConfig struct {
	// DataSource selects where observed and forecast weather comes from:
	// "visualcrossing" or "tomorrowio".
	DataSource           string `toml:"data_source"`
	VisualCrossingAPIKey string `toml:"visualcrossing_api_key"`
	TomorrowIOAPIKey     string `toml:"tomorrowio_api_key"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// optional; with Enabled false, runs write their artifacts to disk only.
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

// RedisConfig holds Redis connection parameters. Caching is optional; with
// Enabled false every read goes straight to the upstream APIs.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for run archival.
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

// StrategyConfig holds the capital and signal thresholds of a run.
type StrategyConfig struct {
	InitialCapital  float64 `toml:"initial_capital"`
	CapitalPerTrade float64 `toml:"capital_per_trade"`
	MinLiquidity    float64 `toml:"min_liquidity"`
	MinEdge         float64 `toml:"min_edge"`
	MaxPrice        float64 `toml:"max_price"`
	MinConfidence   float64 `toml:"min_confidence"`
	DeviationBand   float64 `toml:"deviation_band"`
	DecayRate       float64 `toml:"decay_rate"`
	HollowTolerance float64 `toml:"hollow_tolerance"`
	OutputDir       string  `toml:"output_dir"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Weather: WeatherConfig{
			DataSource: "visualcrossing",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "weatheredge",
			User:          "postgres",
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
			Bucket:         "weatheredge-runs",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Strategy: StrategyConfig{
			InitialCapital:  1000,
			CapitalPerTrade: 50,
			MinLiquidity:    50,
			MinEdge:         0.15,
			MaxPrice:        0.10,
			MinConfidence:   0.60,
			DeviationBand:   3.5,
			HollowTolerance: 0.10,
			OutputDir:       "output",
		},
		Notify: NotifyConfig{
			Events: []string{"run_complete", "opportunity"},
		},
		LogLevel: "info",
	}
}

// validDataSources enumerates the accepted values for Weather.DataSource.
var validDataSources = map[string]bool{
	"visualcrossing": true,
	"tomorrowio":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}

	// Weather
	if !validDataSources[strings.ToLower(c.Weather.DataSource)] {
		errs = append(errs, fmt.Sprintf("weather: unknown data_source %q (valid: visualcrossing, tomorrowio)", c.Weather.DataSource))
	}
	switch strings.ToLower(c.Weather.DataSource) {
	case "visualcrossing":
		if c.Weather.VisualCrossingAPIKey == "" {
			errs = append(errs, "weather: visualcrossing_api_key is required for data_source visualcrossing")
		}
	case "tomorrowio":
		if c.Weather.TomorrowIOAPIKey == "" {
			errs = append(errs, "weather: tomorrowio_api_key is required for data_source tomorrowio")
		}
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

	// Strategy
	if c.Strategy.InitialCapital <= 0 {
		errs = append(errs, "strategy: initial_capital must be > 0")
	}
	if c.Strategy.CapitalPerTrade <= 0 {
		errs = append(errs, "strategy: capital_per_trade must be > 0")
	}
	if c.Strategy.CapitalPerTrade > c.Strategy.InitialCapital {
		errs = append(errs, "strategy: capital_per_trade must not exceed initial_capital")
	}
	if c.Strategy.MinEdge < 0 {
		errs = append(errs, "strategy: min_edge must be >= 0")
	}
	if c.Strategy.MaxPrice <= 0 || c.Strategy.MaxPrice > 1 {
		errs = append(errs, fmt.Sprintf("strategy: max_price must be in (0, 1], got %v", c.Strategy.MaxPrice))
	}
	if c.Strategy.MinConfidence < 0 || c.Strategy.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("strategy: min_confidence must be in [0, 1], got %v", c.Strategy.MinConfidence))
	}
	if c.Strategy.DeviationBand < 0 {
		errs = append(errs, "strategy: deviation_band must be >= 0")
	}
	if c.Strategy.DecayRate < 0 {
		errs = append(errs, "strategy: decay_rate must be >= 0 (0 derives ln2/deviation_band)")
	}

	// Notify — token and chat ID must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
