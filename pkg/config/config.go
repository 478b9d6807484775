package config

import "time"

// Config is the root configuration structure for Warden. It contains all
// configuration sections for the API server, storage, the usage source,
// the monitor loop, enforcement, notifications, and logging.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the persistence backend for rules,
	// violations, templates, and subscriptions.
	Storage StorageConfig `yaml:"storage"`

	// Usage configures the Redis usage source the monitor reads
	// per-user counters from.
	Usage UsageConfig `yaml:"usage"`

	// Monitor configures the periodic sweep.
	Monitor MonitorConfig `yaml:"monitor"`

	// Enforcement configures how exceeded limits are acted on.
	Enforcement EnforcementConfig `yaml:"enforcement"`

	// Notify configures the notification channels.
	Notify NotifyConfig `yaml:"notify"`

	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the API to listen on.
	// Format: "host:port". Default: "127.0.0.1:8686"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite". Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	// Default: "data/warden.db"
	SQLitePath string `yaml:"sqlite_path"`

	// CheckpointInterval is how often the sqlite WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`

	// BusyTimeout is how long sqlite waits for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// UsageConfig configures the usage source.
type UsageConfig struct {
	// RedisURL locates the Redis instance holding usage counters.
	// Default: "redis://127.0.0.1:6379/0"
	RedisURL string `yaml:"redis_url"`
}

// MonitorConfig configures the sweep loop.
type MonitorConfig struct {
	// Enabled turns the background monitor on. Default: true
	Enabled *bool `yaml:"enabled"`

	// Interval between successful sweeps. Default: 300s
	Interval time.Duration `yaml:"interval"`

	// ErrorBackoff is the retry delay after a failed sweep. Default: 60s
	ErrorBackoff time.Duration `yaml:"error_backoff"`

	// Workers is the number of users checked concurrently. Default: 8
	Workers int `yaml:"workers"`

	// DefaultWarningFraction is applied to rules without their own
	// warning fraction. Default: 0.8
	DefaultWarningFraction float64 `yaml:"default_warning_fraction"`
}

// EnforcementConfig configures enforcement actions.
type EnforcementConfig struct {
	// ThrottleBps is the bandwidth cap applied by throttle actions, in
	// bytes per second. Default: 1048576 (1 MiB/s)
	ThrottleBps int64 `yaml:"throttle_bps"`

	// AMQPURL locates the broker account commands are published to.
	// Empty selects the log-only gateway.
	AMQPURL string `yaml:"amqp_url"`

	// AMQPExchange is the fanout exchange name.
	// Default: "warden.account-control"
	AMQPExchange string `yaml:"amqp_exchange"`
}

// NotifyConfig configures the notification channels. A channel whose
// required fields are unset is simply not registered.
type NotifyConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	// Host and Port locate the SMTP server. Leaving Host empty disables
	// the email channel. Default port: 587
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Username and Password authenticate with PLAIN auth when set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// From is the sender address. Required when Host is set.
	From string `yaml:"from"`

	// Subject is the alert subject line. Default: "Limit alert"
	Subject string `yaml:"subject"`

	// Timeout bounds each delivery attempt. Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig configures Telegram Bot API delivery.
type TelegramConfig struct {
	// BotToken authenticates the bot. Leaving it empty disables the
	// telegram channel.
	BotToken string `yaml:"bot_token"`

	// Timeout bounds each delivery attempt. Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookConfig configures webhook delivery. Delivery is single-attempt
// within a sweep; a failure is retried naturally on the next sweep.
type WebhookConfig struct {
	// Timeout bounds each delivery attempt. Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MonitorEnabled reports whether the background monitor should run.
func (c *Config) MonitorEnabled() bool {
	return c.Monitor.Enabled == nil || *c.Monitor.Enabled
}
