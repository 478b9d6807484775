// Package reset re-arms limits on a schedule. A rule with auto-reset
// enabled names a cron expression; when it fires, the user's unresolved
// violations for that kind are resolved and enforcement is allowed to act
// again, matching the start of a new billing or quota period.
package reset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"halcyon-net/warden/pkg/limits"
)

// Forgetter clears per-user enforcement state so a reset user can be
// re-enforced if they exceed the limit again.
type Forgetter interface {
	Forget(username string)
}

// Scheduler registers one cron job per auto-reset rule.
type Scheduler struct {
	store  limits.Store
	forget Forgetter
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a reset scheduler. forget may be nil when no
// enforcement dispatcher is wired.
func NewScheduler(store limits.Store, forget Forgetter, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  store,
		forget: forget,
		logger: logger.With("component", "reset"),
		cron:   cron.New(),
	}
}

// Start loads every auto-reset rule and schedules its resets. Rules with
// invalid cron expressions are skipped with an error log; they must not
// take down the rest.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.store.RulesWithResetSchedule(ctx)
	if err != nil {
		return fmt.Errorf("loading reset schedules: %w", err)
	}

	registered := 0
	for _, rule := range rules {
		rule := rule
		if _, err := cron.ParseStandard(rule.ResetSchedule); err != nil {
			s.logger.Error("Skipping rule with invalid reset schedule",
				"username", rule.Username, "kind", rule.Kind,
				"schedule", rule.ResetSchedule, "error", err)
			continue
		}
		if _, err := s.cron.AddFunc(rule.ResetSchedule, func() {
			s.reset(ctx, rule)
		}); err != nil {
			s.logger.Error("Failed to schedule reset",
				"username", rule.Username, "kind", rule.Kind, "error", err)
			continue
		}
		registered++
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Reset scheduler started", "schedules", registered)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// reset resolves the rule's unresolved violations and re-arms enforcement.
func (s *Scheduler) reset(ctx context.Context, rule limits.LimitRule) {
	resolved, err := s.store.ResolveUserViolations(ctx, rule.Username, rule.Kind)
	if err != nil {
		s.logger.Error("Scheduled reset failed",
			"username", rule.Username, "kind", rule.Kind, "error", err)
		return
	}
	if s.forget != nil {
		s.forget.Forget(rule.Username)
	}

	if resolved > 0 {
		s.logger.Info("Scheduled reset completed",
			"username", rule.Username, "kind", rule.Kind, "resolved", resolved)
	} else {
		s.logger.Debug("Scheduled reset completed, nothing to resolve",
			"username", rule.Username, "kind", rule.Kind)
	}
}

// Reload rebuilds the schedule set from the store. Call it after rules are
// added or removed.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.Stop()
	s.mu.Lock()
	s.cron = cron.New()
	s.mu.Unlock()
	return s.Start(ctx)
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("Reset scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
