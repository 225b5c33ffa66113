package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	content := `
comed:
  timeout: 10s
  max_retries: 3
  retry_delay_base: 1s

alert:
  poll_interval: 5m
  reference_refresh_interval: 168h
  default_threshold: 6.9
  delivery_timeout: 10s

telegram:
  bot_token: "test_token"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Alert.PollInterval != 5*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Alert.PollInterval)
	}
	if cfg.Alert.DefaultThreshold != 6.9 {
		t.Errorf("Unexpected default threshold: %f", cfg.Alert.DefaultThreshold)
	}
	if cfg.ComEd.APIURL == "" {
		t.Error("Expected default ComEd API URL to be applied")
	}
	if cfg.Telegram.BotToken != "test_token" {
		t.Errorf("Unexpected bot token: %q", cfg.Telegram.BotToken)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		ComEd: ComEdConfig{
			APIURL:         "https://example.com/api",
			ReferenceURL:   "https://example.com/ptc",
			Timeout:        10 * time.Second,
			MaxRetries:     3,
			RetryDelayBase: time.Second,
		},
		Alert: AlertConfig{
			PollInterval:             5 * time.Minute,
			ReferenceRefreshInterval: 168 * time.Hour,
			DefaultThreshold:         6.9,
			DeliveryTimeout:          10 * time.Second,
		},
		Telegram: TelegramConfig{
			BotToken: "token",
			Enabled:  true,
		},
		Storage: StorageConfig{DBPath: "./data/test.db"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing bot token when enabled",
			mutate:  func(c *Config) { c.Telegram.BotToken = "" },
			wantErr: true,
		},
		{
			name:   "missing bot token when disabled",
			mutate: func(c *Config) { c.Telegram.BotToken = ""; c.Telegram.Enabled = false },
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.Alert.PollInterval = 30 * time.Second },
			wantErr: true,
		},
		{
			name:    "zero default threshold",
			mutate:  func(c *Config) { c.Alert.DefaultThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "missing api url",
			mutate:  func(c *Config) { c.ComEd.APIURL = "" },
			wantErr: true,
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
