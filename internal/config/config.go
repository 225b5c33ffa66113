package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	ComEd    ComEdConfig    `mapstructure:"comed"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ComEdConfig holds ComEd API configuration
type ComEdConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	ReferenceURL   string        `mapstructure:"reference_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// AlertConfig holds polling and alerting behavior configuration
type AlertConfig struct {
	PollInterval             time.Duration `mapstructure:"poll_interval"`
	ReferenceRefreshInterval time.Duration `mapstructure:"reference_refresh_interval"`
	DefaultThreshold         float64       `mapstructure:"default_threshold"`
	DeliveryTimeout          time.Duration `mapstructure:"delivery_timeout"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override, e.g. VOLTWATCH_TELEGRAM_BOT_TOKEN
	v.SetEnvPrefix("VOLTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// ComEd defaults
	v.SetDefault("comed.api_url", "https://hourlypricing.comed.com/api?type=currenthouraverage")
	v.SetDefault("comed.reference_url", "https://hourlypricing.comed.com/live-prices/price-to-compare/")
	v.SetDefault("comed.timeout", "10s")
	v.SetDefault("comed.max_retries", 3)
	v.SetDefault("comed.retry_delay_base", "1s")

	// Alert defaults
	v.SetDefault("alert.poll_interval", "5m")
	v.SetDefault("alert.reference_refresh_interval", "168h")
	v.SetDefault("alert.default_threshold", 6.9)
	v.SetDefault("alert.delivery_timeout", "10s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", true)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/voltwatch.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate ComEd config
	if c.ComEd.APIURL == "" {
		return fmt.Errorf("comed.api_url is required")
	}
	if c.ComEd.ReferenceURL == "" {
		return fmt.Errorf("comed.reference_url is required")
	}
	if c.ComEd.Timeout < time.Second {
		return fmt.Errorf("comed.timeout must be at least 1 second")
	}
	if c.ComEd.MaxRetries < 1 {
		return fmt.Errorf("comed.max_retries must be at least 1")
	}

	// Validate Alert config
	if c.Alert.PollInterval < 1*time.Minute {
		return fmt.Errorf("alert.poll_interval must be at least 1 minute")
	}
	if c.Alert.ReferenceRefreshInterval < 1*time.Hour {
		return fmt.Errorf("alert.reference_refresh_interval must be at least 1 hour")
	}
	if c.Alert.DefaultThreshold <= 0 {
		return fmt.Errorf("alert.default_threshold must be positive")
	}
	if c.Alert.DeliveryTimeout < time.Second {
		return fmt.Errorf("alert.delivery_timeout must be at least 1 second")
	}

	// Validate Telegram config
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
