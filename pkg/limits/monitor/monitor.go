// Package monitor runs the periodic sweep that checks every user with
// enabled limit rules against their current usage, records violations, and
// drives enforcement and notification.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/limits/enforcement"
	"halcyon-net/warden/pkg/limits/notify"
	"halcyon-net/warden/pkg/usage"
)

const (
	// DefaultInterval is the delay between successful sweeps.
	DefaultInterval = 300 * time.Second

	// DefaultErrorBackoff is the delay after a failed sweep.
	DefaultErrorBackoff = 60 * time.Second

	// DefaultWorkers is the number of concurrent per-user checks.
	DefaultWorkers = 8
)

// Enforcer executes the action of an exceeded evaluation.
type Enforcer interface {
	Enforce(ctx context.Context, username string, ev limits.Evaluation) (*enforcement.Result, error)
}

// Notifier fans a message out to a set of subscriptions.
type Notifier interface {
	Dispatch(ctx context.Context, subs []limits.NotificationSubscription, message string) []notify.Outcome
}

// Config configures the monitor loop.
type Config struct {
	// Interval between successful sweeps. Default: DefaultInterval.
	Interval time.Duration

	// ErrorBackoff is the shorter delay used after a sweep fails, so a
	// transient backend outage is retried promptly. Default:
	// DefaultErrorBackoff.
	ErrorBackoff time.Duration

	// Workers is the number of users checked concurrently.
	// Default: DefaultWorkers.
	Workers int
}

// Monitor owns the sweep loop.
type Monitor struct {
	store    limits.Store
	source   usage.Source
	enforcer Enforcer
	notifier Notifier
	logger   *slog.Logger
	metrics  *limits.Metrics

	interval     atomic.Int64 // duration in nanoseconds
	errorBackoff time.Duration
	workers      int
}

// New creates a monitor. All collaborators are required except metrics.
func New(store limits.Store, source usage.Source, enforcer Enforcer, notifier Notifier,
	cfg Config, logger *slog.Logger, metrics *limits.Metrics) *Monitor {

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	m := &Monitor{
		store:        store,
		source:       source,
		enforcer:     enforcer,
		notifier:     notifier,
		logger:       logger.With("component", "monitor"),
		metrics:      metrics,
		errorBackoff: cfg.ErrorBackoff,
		workers:      cfg.Workers,
	}
	m.interval.Store(int64(cfg.Interval))
	return m
}

// SetInterval changes the delay between sweeps. It takes effect after the
// current sleep, so a config reload never interrupts a sweep in flight.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.interval.Store(int64(d))
}

// Run sweeps until the context is cancelled. A failed sweep is retried
// after the error backoff instead of the full interval.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Limit monitor started",
		"interval", time.Duration(m.interval.Load()), "workers", m.workers)

	for {
		start := time.Now()
		err := m.Sweep(ctx)
		m.metrics.RecordSweep(err, time.Since(start))

		delay := time.Duration(m.interval.Load())
		if err != nil {
			if ctx.Err() != nil {
				m.logger.Info("Limit monitor stopped")
				return
			}
			m.logger.Error("Sweep failed, backing off", "error", err, "backoff", m.errorBackoff)
			delay = m.errorBackoff
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Limit monitor stopped")
			return
		case <-time.After(delay):
		}
	}
}

// Sweep checks every user with enabled rules once. Per-user failures are
// logged and skipped; only a failure to list users fails the sweep.
func (m *Monitor) Sweep(ctx context.Context) error {
	sweepID := uuid.NewString()

	users, err := m.store.UsersWithEnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for username := range jobs {
				m.checkUserSafely(ctx, username)
			}
		}()
	}

	for _, username := range users {
		select {
		case jobs <- username:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	m.logger.Debug("Sweep complete", "sweep", sweepID, "users", len(users))
	return nil
}

// checkUserSafely contains a panic from a collaborator to the one user
// being checked, so a corrupt row or a misbehaving backend never takes
// down the sweep.
func (m *Monitor) checkUserSafely(ctx context.Context, username string) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordUserCheck(true)
			m.logger.Error("Recovered panic while checking user",
				"username", username, "panic", r)
		}
	}()
	m.checkUser(ctx, username)
}

// checkUser evaluates one user's rules against a fresh usage snapshot. Any
// failure is contained to this user.
func (m *Monitor) checkUser(ctx context.Context, username string) {
	snapshot, err := m.source.Snapshot(ctx, username)
	if err != nil {
		m.metrics.RecordUserCheck(true)
		m.logger.Warn("Skipping user, usage unavailable", "username", username, "error", err)
		return
	}

	rules, err := m.store.Rules(ctx, username)
	if err != nil {
		m.metrics.RecordUserCheck(true)
		m.logger.Warn("Skipping user, rules unavailable", "username", username, "error", err)
		return
	}
	m.metrics.RecordUserCheck(false)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		ev := limits.Evaluate(rule, snapshot[rule.Kind])
		m.metrics.RecordEvaluation(ev.Kind, ev.Status)

		switch {
		case ev.Exceeded():
			m.handleExceeded(ctx, username, rule, ev)
		case ev.ShouldNotify:
			m.handleWarning(ctx, username, rule, ev)
		}
	}
}

// handleExceeded records the violation, enforces the action, then notifies.
// The violation record is written first so a crash mid-flow never loses the
// event; a failed write is logged but does not block enforcement.
func (m *Monitor) handleExceeded(ctx context.Context, username string, rule limits.LimitRule, ev limits.Evaluation) {
	violation := &limits.Violation{
		ID:          uuid.NewString(),
		Username:    username,
		Kind:        ev.Kind,
		Observed:    ev.Observed,
		Threshold:   ev.Threshold,
		ActionTaken: ev.Action,
		OccurredAt:  time.Now().UTC(),
	}

	recorded := true
	if err := m.store.SaveViolation(ctx, violation); err != nil {
		recorded = false
		m.logger.Error("Failed to record violation",
			"username", username, "kind", ev.Kind, "error", err)
	}
	m.metrics.RecordViolation(ev.Kind, ev.Action)

	m.logger.Warn("Limit exceeded",
		"username", username, "kind", ev.Kind,
		"observed", ev.Observed, "threshold", ev.Threshold, "action", ev.Action)

	if _, err := m.enforcer.Enforce(ctx, username, ev); err != nil {
		m.logger.Error("Enforcement failed",
			"username", username, "kind", ev.Kind, "action", ev.Action, "error", err)
	}

	subs := m.subscriptionsFor(ctx, username, rule, ev)
	outcomes := m.notifier.Dispatch(ctx, subs, notify.ViolationMessage(username, ev))
	if recorded && notify.Delivered(outcomes) {
		if err := m.store.MarkViolationNotified(ctx, violation.ID); err != nil {
			m.logger.Error("Failed to mark violation notified",
				"violation", violation.ID, "error", err)
		}
	}
}

// handleWarning notifies without recording or enforcing anything.
func (m *Monitor) handleWarning(ctx context.Context, username string, rule limits.LimitRule, ev limits.Evaluation) {
	m.logger.Info("Limit warning",
		"username", username, "kind", ev.Kind, "percentage", ev.Percentage)

	subs := m.subscriptionsFor(ctx, username, rule, ev)
	m.notifier.Dispatch(ctx, subs, notify.WarningMessage(username, ev))
}

// subscriptionsFor returns the subscriptions a message should go to: the
// user's stored subscriptions for this kind, plus a synthetic webhook
// subscription when the rule carries its own webhook URL. A warning skips
// subscriptions whose own warning threshold is not yet crossed.
func (m *Monitor) subscriptionsFor(ctx context.Context, username string, rule limits.LimitRule, ev limits.Evaluation) []limits.NotificationSubscription {
	stored, err := m.store.Subscriptions(ctx, username, ev.Kind)
	if err != nil {
		m.logger.Error("Failed to load subscriptions",
			"username", username, "kind", ev.Kind, "error", err)
	}

	subs := make([]limits.NotificationSubscription, 0, len(stored)+1)
	for _, sub := range stored {
		if !sub.Enabled {
			continue
		}
		if !ev.Exceeded() && sub.WarningFraction > 0 && ev.Percentage < sub.WarningFraction*100 {
			continue
		}
		subs = append(subs, sub)
	}

	if rule.WebhookURL != "" {
		subs = append(subs, limits.NotificationSubscription{
			Username:  username,
			Kind:      ev.Kind,
			Channel:   limits.ChannelWebhook,
			Recipient: rule.WebhookURL,
			Enabled:   true,
		})
	}
	return subs
}
