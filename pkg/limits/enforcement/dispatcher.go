package enforcement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"halcyon-net/warden/pkg/accountcontrol"
	"halcyon-net/warden/pkg/limits"
)

// DefaultThrottleBps is the bandwidth cap applied by throttle actions when
// no explicit cap is configured: 1 MiB/s.
const DefaultThrottleBps = 1024 * 1024

// Result describes what the dispatcher did for one violation.
type Result struct {
	// Action is the action that was requested.
	Action limits.ActionKind

	// Applied is true when the backend call succeeded or the action needed
	// no backend call.
	Applied bool

	// Degraded is true when the backend cannot perform the action and the
	// dispatcher fell back to notification-only handling.
	Degraded bool

	// Reason carries human-readable detail for logs and violation notes.
	Reason string
}

// Dispatcher executes enforcement actions through an account controller.
type Dispatcher struct {
	control accountcontrol.Controller
	logger  *slog.Logger
	metrics *limits.Metrics

	throttleBps int64

	// acted tracks users already disabled or deleted in this process so
	// repeated sweeps do not re-issue the same terminal action.
	mu    sync.Mutex
	acted map[string]limits.ActionKind
}

// Config configures a Dispatcher.
type Config struct {
	// ThrottleBps is the bandwidth cap for throttle actions.
	// Zero selects DefaultThrottleBps.
	ThrottleBps int64
}

// NewDispatcher creates a dispatcher over the given account controller.
func NewDispatcher(control accountcontrol.Controller, cfg Config, logger *slog.Logger, metrics *limits.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	bps := cfg.ThrottleBps
	if bps <= 0 {
		bps = DefaultThrottleBps
	}
	return &Dispatcher{
		control:     control,
		logger:      logger.With("component", "enforcement"),
		metrics:     metrics,
		throttleBps: bps,
		acted:       make(map[string]limits.ActionKind),
	}
}

// Enforce executes the evaluation's action for a user.
//
// Notify actions succeed without touching the backend. Disable and delete
// are terminal: once either has been applied to a user, later calls for the
// same user succeed without a second backend call. A throttle against a
// backend that cannot shape bandwidth degrades to a notification-only
// result rather than an error.
func (d *Dispatcher) Enforce(ctx context.Context, username string, ev limits.Evaluation) (*Result, error) {
	result := &Result{Action: ev.Action}

	switch ev.Action {
	case limits.ActionNotify:
		result.Applied = true
		d.metrics.RecordEnforcement(ev.Action, nil)
		return result, nil

	case limits.ActionDisable:
		if prior, done := d.alreadyTerminal(username); done {
			result.Applied = true
			result.Reason = fmt.Sprintf("account already %sd", prior)
			return result, nil
		}
		if err := d.control.Disable(ctx, username); err != nil {
			d.metrics.RecordEnforcement(ev.Action, err)
			return result, fmt.Errorf("disabling %s: %w", username, err)
		}
		d.markTerminal(username, limits.ActionDisable)
		result.Applied = true
		d.metrics.RecordEnforcement(ev.Action, nil)
		d.logger.Warn("Account disabled for exceeding limit",
			"username", username, "kind", ev.Kind, "observed", ev.Observed, "threshold", ev.Threshold)
		return result, nil

	case limits.ActionThrottle:
		err := d.control.Throttle(ctx, username, d.throttleBps)
		if errors.Is(err, accountcontrol.ErrThrottleUnsupported) {
			result.Applied = true
			result.Degraded = true
			result.Reason = "throttle unsupported, notification only"
			d.metrics.RecordEnforcement(ev.Action, nil)
			d.logger.Warn("Throttle unsupported by account backend, degrading to notification",
				"username", username, "kind", ev.Kind)
			return result, nil
		}
		if err != nil {
			d.metrics.RecordEnforcement(ev.Action, err)
			return result, fmt.Errorf("throttling %s: %w", username, err)
		}
		result.Applied = true
		d.metrics.RecordEnforcement(ev.Action, nil)
		d.logger.Warn("Account throttled for exceeding limit",
			"username", username, "kind", ev.Kind, "limit_bps", d.throttleBps)
		return result, nil

	case limits.ActionDelete:
		if prior, done := d.alreadyTerminal(username); done && prior == limits.ActionDelete {
			result.Applied = true
			result.Reason = "account already deleted"
			return result, nil
		}
		if err := d.control.Delete(ctx, username); err != nil {
			d.metrics.RecordEnforcement(ev.Action, err)
			return result, fmt.Errorf("deleting %s: %w", username, err)
		}
		d.markTerminal(username, limits.ActionDelete)
		result.Applied = true
		d.metrics.RecordEnforcement(ev.Action, nil)
		d.logger.Warn("Account deleted for exceeding limit",
			"username", username, "kind", ev.Kind)
		return result, nil

	default:
		return result, fmt.Errorf("%w: unknown action %q", limits.ErrInvalidRule, ev.Action)
	}
}

func (d *Dispatcher) alreadyTerminal(username string) (limits.ActionKind, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	action, ok := d.acted[username]
	return action, ok
}

func (d *Dispatcher) markTerminal(username string, action limits.ActionKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acted[username] = action
}

// Forget clears the terminal-action marker for a user, letting a future
// sweep act again after an admin re-enables the account.
func (d *Dispatcher) Forget(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.acted, username)
}
