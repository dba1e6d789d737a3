package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WEDGE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WEDGE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "WEDGE_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "WEDGE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "WEDGE_POLYMARKET_WS_HOST")

	// ── Weather ──
	setStr(&cfg.Weather.DataSource, "WEDGE_WEATHER_DATA_SOURCE")
	setStr(&cfg.Weather.VisualCrossingAPIKey, "WEDGE_WEATHER_VISUALCROSSING_API_KEY")
	setStr(&cfg.Weather.TomorrowIOAPIKey, "WEDGE_WEATHER_TOMORROWIO_API_KEY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "WEDGE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "WEDGE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WEDGE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WEDGE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WEDGE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WEDGE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WEDGE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WEDGE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WEDGE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WEDGE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WEDGE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "WEDGE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "WEDGE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WEDGE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WEDGE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WEDGE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WEDGE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WEDGE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "WEDGE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "WEDGE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WEDGE_S3_REGION")
	setStr(&cfg.S3.Bucket, "WEDGE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WEDGE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WEDGE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WEDGE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WEDGE_S3_FORCE_PATH_STYLE")

	// ── Strategy ──
	setFloat64(&cfg.Strategy.InitialCapital, "WEDGE_STRATEGY_INITIAL_CAPITAL")
	setFloat64(&cfg.Strategy.CapitalPerTrade, "WEDGE_STRATEGY_CAPITAL_PER_TRADE")
	setFloat64(&cfg.Strategy.MinLiquidity, "WEDGE_STRATEGY_MIN_LIQUIDITY")
	setFloat64(&cfg.Strategy.MinEdge, "WEDGE_STRATEGY_MIN_EDGE")
	setFloat64(&cfg.Strategy.MaxPrice, "WEDGE_STRATEGY_MAX_PRICE")
	setFloat64(&cfg.Strategy.MinConfidence, "WEDGE_STRATEGY_MIN_CONFIDENCE")
	setFloat64(&cfg.Strategy.DeviationBand, "WEDGE_STRATEGY_DEVIATION_BAND")
	setFloat64(&cfg.Strategy.DecayRate, "WEDGE_STRATEGY_DECAY_RATE")
	setFloat64(&cfg.Strategy.HollowTolerance, "WEDGE_STRATEGY_HOLLOW_TOLERANCE")
	setStr(&cfg.Strategy.OutputDir, "WEDGE_STRATEGY_OUTPUT_DIR")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WEDGE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WEDGE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WEDGE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WEDGE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "WEDGE_LOG_LEVEL")
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
