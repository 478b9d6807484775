package limits

import "context"

// Store is the persistence boundary for rules, violations, templates, and
// notification subscriptions. Implementations must be safe for concurrent
// use: every write is scoped to one (username, kind) pair, so cross-user
// writes never conflict.
type Store interface {
	// UsersWithEnabledRules returns the distinct usernames that have at
	// least one enabled rule. This is the single query that seeds a sweep.
	UsersWithEnabledRules(ctx context.Context) ([]string, error)

	// Rules returns all rules for a user, ordered by kind.
	Rules(ctx context.Context, username string) ([]LimitRule, error)

	// UpsertRule inserts or replaces the rule for (rule.Username, rule.Kind),
	// preserving the invariant of at most one enabled rule per pair.
	UpsertRule(ctx context.Context, rule *LimitRule) error

	// DeleteRule removes the rule for a (username, kind) pair.
	// Returns ErrRuleNotFound if no such rule exists.
	DeleteRule(ctx context.Context, username string, kind LimitKind) error

	// ReplaceRulesByKind atomically deletes the user's rules for the kinds
	// present in rules and inserts rules fresh. This is the template-apply
	// primitive and must be idempotent.
	ReplaceRulesByKind(ctx context.Context, username string, rules []LimitRule) error

	// RulesWithResetSchedule returns every enabled rule that has AutoReset
	// set and a non-empty ResetSchedule.
	RulesWithResetSchedule(ctx context.Context) ([]LimitRule, error)

	// SaveViolation persists a new violation record.
	SaveViolation(ctx context.Context, v *Violation) error

	// Violations returns a user's violations, newest first, capped at
	// limit when limit > 0.
	Violations(ctx context.Context, username string, limit int) ([]Violation, error)

	// ResolveViolation marks a violation resolved with an optional note.
	// Returns ErrViolationNotFound if the ID does not exist.
	ResolveViolation(ctx context.Context, id string, note string) error

	// ResolveUserViolations resolves all unresolved violations for a
	// (username, kind) pair and returns how many were resolved.
	ResolveUserViolations(ctx context.Context, username string, kind LimitKind) (int, error)

	// MarkViolationNotified sets the notification-sent flag on a violation.
	MarkViolationNotified(ctx context.Context, id string) error

	// Subscriptions returns the notification subscriptions for a
	// (username, kind) pair, enabled or not.
	Subscriptions(ctx context.Context, username string, kind LimitKind) ([]NotificationSubscription, error)

	// SaveSubscription inserts or updates a subscription.
	SaveSubscription(ctx context.Context, sub *NotificationSubscription) error

	// Templates returns all templates ordered by name.
	Templates(ctx context.Context) ([]LimitTemplate, error)

	// Template returns one template by ID, or ErrTemplateNotFound.
	Template(ctx context.Context, id int64) (*LimitTemplate, error)

	// SaveTemplate inserts or updates a template and its rule set.
	SaveTemplate(ctx context.Context, tpl *LimitTemplate) error

	// Stats computes the aggregate counters in one pass over the store.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases any resources held by the store.
	Close() error
}
