package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Weather.VisualCrossingAPIKey = "k"
	return cfg
}

func TestDefaultsValidateWithAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresWeatherKey(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for missing weather key")
	}
	if !strings.Contains(err.Error(), "visualcrossing_api_key") {
		t.Errorf("error %q does not mention visualcrossing_api_key", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	cfg.Strategy.InitialCapital = -5
	cfg.Strategy.MaxPrice = 2
	cfg.Notify.TelegramToken = "tok" // chat ID missing

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want combined error")
	}
	for _, want := range []string{"log_level", "initial_capital", "max_price", "telegram_chat_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateRejectsNegativeDecayRate(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy.DecayRate = -0.1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for negative decay_rate")
	}
	if !strings.Contains(err.Error(), "decay_rate") {
		t.Errorf("error %q does not mention decay_rate", err)
	}
}

func TestValidateCapitalPerTradeBound(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy.CapitalPerTrade = cfg.Strategy.InitialCapital + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for capital_per_trade > initial_capital")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[weather]
data_source = "tomorrowio"
tomorrowio_api_key = "file-key"

[strategy]
initial_capital = 2500.0
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WEDGE_WEATHER_TOMORROWIO_API_KEY", "env-key")
	t.Setenv("WEDGE_STRATEGY_MIN_EDGE", "0.25")
	t.Setenv("WEDGE_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Weather.DataSource != "tomorrowio" {
		t.Errorf("DataSource = %q, want tomorrowio", cfg.Weather.DataSource)
	}
	if cfg.Weather.TomorrowIOAPIKey != "env-key" {
		t.Errorf("TomorrowIOAPIKey = %q, want env override", cfg.Weather.TomorrowIOAPIKey)
	}
	if cfg.Strategy.InitialCapital != 2500 {
		t.Errorf("InitialCapital = %v, want 2500", cfg.Strategy.InitialCapital)
	}
	if cfg.Strategy.MinEdge != 0.25 {
		t.Errorf("MinEdge = %v, want 0.25", cfg.Strategy.MinEdge)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled = false, want env override true")
	}
	// Untouched fields keep their defaults.
	if cfg.Polymarket.GammaHost != "https://gamma-api.polymarket.com" {
		t.Errorf("GammaHost = %q, want default", cfg.Polymarket.GammaHost)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Strategy.CapitalPerTrade != 50 {
		t.Errorf("CapitalPerTrade = %v, want default 50", cfg.Strategy.CapitalPerTrade)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "secret"
	cfg.Notify.TelegramToken = "tok"
	cfg.Notify.TelegramChatID = "42"

	red := RedactedConfig(&cfg)

	if red.Weather.VisualCrossingAPIKey != "***" {
		t.Errorf("VisualCrossingAPIKey = %q, want ***", red.Weather.VisualCrossingAPIKey)
	}
	if red.Postgres.Password != "***" || red.S3.SecretKey != "***" || red.Notify.TelegramToken != "***" {
		t.Error("secret fields not redacted")
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Error("original config mutated")
	}
	// Empty secrets stay empty rather than showing a misleading placeholder.
	if red.Redis.Password != "" {
		t.Errorf("Redis.Password = %q, want empty", red.Redis.Password)
	}
}
