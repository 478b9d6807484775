// Package accountcontrol abstracts the account-management backend that
// enforcement actions are applied through. The production implementation
// publishes commands to an AMQP exchange consumed by the access layer;
// LogGateway is a no-op fallback for deployments without a broker.
package accountcontrol

import (
	"context"
	"errors"
	"log/slog"
)

// Controller applies enforcement actions to user accounts.
type Controller interface {
	// Disable suspends the account. Disabling an already-disabled account
	// must succeed.
	Disable(ctx context.Context, username string) error

	// Throttle caps the account's bandwidth to limitBps bytes per second.
	// Implementations that cannot throttle return ErrThrottleUnsupported.
	Throttle(ctx context.Context, username string, limitBps int64) error

	// Delete removes the account permanently.
	Delete(ctx context.Context, username string) error
}

// ErrThrottleUnsupported is returned by controllers whose backend has no
// bandwidth-shaping capability. Callers degrade to a notification instead
// of failing the enforcement.
var ErrThrottleUnsupported = errors.New("throttle not supported by account backend")

// LogGateway is a Controller that records every action in the log and does
// nothing else. It is the default when no broker is configured, so
// enforcement flows can be exercised end to end without an access layer.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway creates a log-only controller.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger.With("component", "accountcontrol")}
}

func (g *LogGateway) Disable(_ context.Context, username string) error {
	g.logger.Warn("Account disable requested (log-only gateway)", "username", username)
	return nil
}

func (g *LogGateway) Throttle(_ context.Context, username string, limitBps int64) error {
	g.logger.Warn("Account throttle requested (log-only gateway)",
		"username", username, "limit_bps", limitBps)
	return ErrThrottleUnsupported
}

func (g *LogGateway) Delete(_ context.Context, username string) error {
	g.logger.Warn("Account delete requested (log-only gateway)", "username", username)
	return nil
}
