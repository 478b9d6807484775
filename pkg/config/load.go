package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention WARDEN_SECTION_FIELD (e.g., WARDEN_SERVER_LISTEN_ADDRESS)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with every default applied and no
// file involved.
func DefaultConfig() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// applyEnvOverrides applies WARDEN_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}

	setString("WARDEN_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("WARDEN_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("WARDEN_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("WARDEN_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("WARDEN_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("WARDEN_STORAGE_SQLITE_PATH", &cfg.Storage.SQLitePath)

	setString("WARDEN_USAGE_REDIS_URL", &cfg.Usage.RedisURL)

	setDuration("WARDEN_MONITOR_INTERVAL", &cfg.Monitor.Interval)
	setDuration("WARDEN_MONITOR_ERROR_BACKOFF", &cfg.Monitor.ErrorBackoff)
	setInt("WARDEN_MONITOR_WORKERS", &cfg.Monitor.Workers)
	if val := os.Getenv("WARDEN_MONITOR_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Monitor.Enabled = &b
		}
	}
	if val := os.Getenv("WARDEN_MONITOR_DEFAULT_WARNING_FRACTION"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Monitor.DefaultWarningFraction = f
		}
	}

	if val := os.Getenv("WARDEN_ENFORCEMENT_THROTTLE_BPS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Enforcement.ThrottleBps = i
		}
	}
	setString("WARDEN_ENFORCEMENT_AMQP_URL", &cfg.Enforcement.AMQPURL)
	setString("WARDEN_ENFORCEMENT_AMQP_EXCHANGE", &cfg.Enforcement.AMQPExchange)

	setString("WARDEN_NOTIFY_EMAIL_HOST", &cfg.Notify.Email.Host)
	setInt("WARDEN_NOTIFY_EMAIL_PORT", &cfg.Notify.Email.Port)
	setString("WARDEN_NOTIFY_EMAIL_USERNAME", &cfg.Notify.Email.Username)
	setString("WARDEN_NOTIFY_EMAIL_PASSWORD", &cfg.Notify.Email.Password)
	setString("WARDEN_NOTIFY_EMAIL_FROM", &cfg.Notify.Email.From)
	setString("WARDEN_NOTIFY_TELEGRAM_BOT_TOKEN", &cfg.Notify.Telegram.BotToken)

	setString("WARDEN_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("WARDEN_LOGGING_FORMAT", &cfg.Logging.Format)
}
