// Package config loads the vela YAML configuration file and applies
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the vela trading system.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Discord Discord       `yaml:"discord"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
}

// Storage holds paths for trade persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`    // Parquet fill journal root ("" disables)
	SQLitePath string `yaml:"sqlite_path"` // trade database
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Discord configures the outbound notification webhook.
type Discord struct {
	WebhookURL      string `yaml:"webhook_url"`
	Enabled         bool   `yaml:"enabled"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// TradingConfig defines risk and execution parameters.
type TradingConfig struct {
	LiveTrading     bool    `yaml:"live_trading"`
	MaxPositionSize float64 `yaml:"max_position_size"` // max notional per order
	MaxDailyLoss    float64 `yaml:"max_daily_loss"`    // realized-loss cap, 0 disables
	DefaultPrice    float64 `yaml:"default_price"`     // fallback when no price is available
	FeeRate         float64 `yaml:"fee_rate"`
	FeeCurrency     string  `yaml:"fee_currency"`
	MonitorInterval int     `yaml:"monitor_interval_secs"`
}

// Interval returns the order monitor polling interval as a duration.
func (t TradingConfig) Interval() time.Duration {
	return time.Duration(t.MonitorInterval) * time.Second
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config populated with sane paper-trading defaults.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/vela.db",
		},
		Discord: Discord{
			RateLimitPerMin: 10,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Trading: TradingConfig{
			LiveTrading:     false,
			MaxPositionSize: 100000,
			DefaultPrice:    50000,
			FeeRate:         0.001,
			FeeCurrency:     "USD",
			MonitorInterval: 5,
		},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies that would only
// surface later at runtime.
func (c *Config) Validate() error {
	if c.Trading.MaxPositionSize <= 0 {
		return errors.New("trading.max_position_size must be positive")
	}
	if c.Trading.MaxDailyLoss < 0 {
		return errors.New("trading.max_daily_loss must not be negative")
	}
	if c.Trading.FeeRate < 0 {
		return errors.New("trading.fee_rate must not be negative")
	}
	if c.Trading.MonitorInterval <= 0 {
		return errors.New("trading.monitor_interval_secs must be positive")
	}
	if c.Trading.LiveTrading && (c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "") {
		return errors.New("live trading requires alpaca credentials")
	}
	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		return errors.New("discord notifications enabled without webhook_url")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Discord.WebhookURL = v
		cfg.Discord.Enabled = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
