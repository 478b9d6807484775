package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8686"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Storage defaults
	DefaultStorageBackend     = "sqlite"
	DefaultSQLitePath         = "data/warden.db"
	DefaultCheckpointInterval = 5 * time.Minute
	DefaultBusyTimeout        = 5 * time.Second

	// Usage defaults
	DefaultRedisURL = "redis://127.0.0.1:6379/0"

	// Monitor defaults
	DefaultMonitorInterval     = 300 * time.Second
	DefaultMonitorErrorBackoff = 60 * time.Second
	DefaultMonitorWorkers      = 8
	DefaultWarningFraction     = 0.8

	// Enforcement defaults
	DefaultThrottleBps  = int64(1024 * 1024)
	DefaultAMQPExchange = "warden.account-control"

	// Notify defaults
	DefaultSMTPPort      = 587
	DefaultEmailSubject  = "Limit alert"
	DefaultNotifyTimeout = 10 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Storage
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}
	if cfg.Storage.CheckpointInterval == 0 {
		cfg.Storage.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultBusyTimeout
	}

	// Usage
	if cfg.Usage.RedisURL == "" {
		cfg.Usage.RedisURL = DefaultRedisURL
	}

	// Monitor
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = DefaultMonitorInterval
	}
	if cfg.Monitor.ErrorBackoff == 0 {
		cfg.Monitor.ErrorBackoff = DefaultMonitorErrorBackoff
	}
	if cfg.Monitor.Workers == 0 {
		cfg.Monitor.Workers = DefaultMonitorWorkers
	}
	if cfg.Monitor.DefaultWarningFraction == 0 {
		cfg.Monitor.DefaultWarningFraction = DefaultWarningFraction
	}

	// Enforcement
	if cfg.Enforcement.ThrottleBps == 0 {
		cfg.Enforcement.ThrottleBps = DefaultThrottleBps
	}
	if cfg.Enforcement.AMQPExchange == "" {
		cfg.Enforcement.AMQPExchange = DefaultAMQPExchange
	}

	// Notify
	if cfg.Notify.Email.Port == 0 {
		cfg.Notify.Email.Port = DefaultSMTPPort
	}
	if cfg.Notify.Email.Subject == "" {
		cfg.Notify.Email.Subject = DefaultEmailSubject
	}
	if cfg.Notify.Email.Timeout == 0 {
		cfg.Notify.Email.Timeout = DefaultNotifyTimeout
	}
	if cfg.Notify.Telegram.Timeout == 0 {
		cfg.Notify.Telegram.Timeout = DefaultNotifyTimeout
	}
	if cfg.Notify.Webhook.Timeout == 0 {
		cfg.Notify.Webhook.Timeout = DefaultNotifyTimeout
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
