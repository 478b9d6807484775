package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned
// together.
func Validate(cfg *Config) error {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q", cfg.Server.ListenAddress),
		})
	}

	switch cfg.Storage.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q, must be memory or sqlite", cfg.Storage.Backend),
		})
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.sqlite_path",
			Message: "cannot be empty with sqlite backend",
		})
	}

	if u, err := url.Parse(cfg.Usage.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		errs = append(errs, FieldError{
			Field:   "usage.redis_url",
			Message: fmt.Sprintf("invalid redis url %q", cfg.Usage.RedisURL),
		})
	}

	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   "monitor.interval",
			Message: "must be positive",
		})
	}
	if cfg.Monitor.ErrorBackoff <= 0 {
		errs = append(errs, FieldError{
			Field:   "monitor.error_backoff",
			Message: "must be positive",
		})
	}
	if cfg.Monitor.Workers <= 0 {
		errs = append(errs, FieldError{
			Field:   "monitor.workers",
			Message: "must be positive",
		})
	}
	if cfg.Monitor.DefaultWarningFraction < 0 || cfg.Monitor.DefaultWarningFraction > 1 {
		errs = append(errs, FieldError{
			Field:   "monitor.default_warning_fraction",
			Message: "must be in [0, 1]",
		})
	}

	if cfg.Enforcement.ThrottleBps <= 0 {
		errs = append(errs, FieldError{
			Field:   "enforcement.throttle_bps",
			Message: "must be positive",
		})
	}

	if cfg.Notify.Email.Host != "" && cfg.Notify.Email.From == "" {
		errs = append(errs, FieldError{
			Field:   "notify.email.from",
			Message: "required when notify.email.host is set",
		})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
