package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for DexSentry.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Telegram TelegramConfig `yaml:"telegram"`
	Strategy Strategy       `yaml:"strategy"`
	SafeMode SafeModeConfig `yaml:"safe_mode"`
	Watch    WatchConfig    `yaml:"watch"`
	Status   StatusConfig   `yaml:"status"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type IngestConfig struct {
	BaseURL             string  `yaml:"base_url"`
	Chain               string  `yaml:"chain"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	RateLimitRPS        float64 `yaml:"rate_limit_rps"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	SignalChat  string `yaml:"signal_chat"`
	AdminChat   string `yaml:"admin_chat"`
	APIBaseURL  string `yaml:"api_base_url"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

type SafeModeConfig struct {
	Enabled              bool    `yaml:"enabled"`
	CPUThresholdPct      float64 `yaml:"cpu_threshold_pct"`
	MemThresholdPct      float64 `yaml:"mem_threshold_pct"`
	HysteresisMarginPct  float64 `yaml:"hysteresis_margin_pct"`
	CheckIntervalSeconds int     `yaml:"check_interval_seconds"`
}

type WatchConfig struct {
	UpdateIntervalSeconds int    `yaml:"update_interval_seconds"`
	ExpiryMinutes         int    `yaml:"expiry_minutes"`
	MaxConcurrent         int    `yaml:"max_concurrent"`
	DataDir               string `yaml:"data_dir"`
}

type StatusConfig struct {
	Port int `yaml:"port"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration with every default applied, for use when
// no config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "dexsentry-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Ingest.BaseURL == "" {
		cfg.Ingest.BaseURL = "https://api.dexscreener.com/latest"
	}
	if cfg.Ingest.Chain == "" {
		cfg.Ingest.Chain = "solana"
	}
	if cfg.Ingest.PollIntervalSeconds == 0 {
		cfg.Ingest.PollIntervalSeconds = 30
	}
	if cfg.Ingest.TimeoutSeconds == 0 {
		cfg.Ingest.TimeoutSeconds = 10
	}
	if cfg.Ingest.RateLimitRPS == 0 {
		cfg.Ingest.RateLimitRPS = 0.5
	}
	if cfg.Telegram.APIBaseURL == "" {
		cfg.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.TimeoutSecs == 0 {
		cfg.Telegram.TimeoutSecs = 10
	}
	if cfg.SafeMode.CPUThresholdPct == 0 {
		cfg.SafeMode.CPUThresholdPct = 80
	}
	if cfg.SafeMode.MemThresholdPct == 0 {
		cfg.SafeMode.MemThresholdPct = 85
	}
	if cfg.SafeMode.HysteresisMarginPct == 0 {
		cfg.SafeMode.HysteresisMarginPct = 10
	}
	if cfg.SafeMode.CheckIntervalSeconds == 0 {
		cfg.SafeMode.CheckIntervalSeconds = 15
	}
	if cfg.Watch.UpdateIntervalSeconds == 0 {
		cfg.Watch.UpdateIntervalSeconds = 60
	}
	if cfg.Watch.ExpiryMinutes == 0 {
		cfg.Watch.ExpiryMinutes = 30
	}
	if cfg.Watch.MaxConcurrent == 0 {
		cfg.Watch.MaxConcurrent = 50
	}
	if cfg.Watch.DataDir == "" {
		cfg.Watch.DataDir = "data/watchlist"
	}
	if cfg.Status.Port == 0 {
		cfg.Status.Port = 9480
	}
	applyStrategyDefaults(&cfg.Strategy)
}

// Validate checks cross-field consistency before the system starts.
func (c *Config) Validate() error {
	if c.Ingest.PollIntervalSeconds < 1 {
		return fmt.Errorf("ingest.poll_interval_seconds must be >= 1, got %d", c.Ingest.PollIntervalSeconds)
	}
	if c.SafeMode.HysteresisMarginPct <= 0 {
		return fmt.Errorf("safe_mode.hysteresis_margin_pct must be > 0, got %.1f", c.SafeMode.HysteresisMarginPct)
	}
	if c.SafeMode.CPUThresholdPct <= c.SafeMode.HysteresisMarginPct {
		return fmt.Errorf("safe_mode.cpu_threshold_pct must exceed the hysteresis margin")
	}
	return c.Strategy.Validate()
}
