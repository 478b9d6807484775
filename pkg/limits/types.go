package limits

import (
	"errors"
	"fmt"
	"time"
)

// LimitKind identifies the usage metric a rule constrains.
type LimitKind string

const (
	// KindData limits total bytes transferred.
	KindData LimitKind = "data_limit"

	// KindTime limits total connected seconds.
	KindTime LimitKind = "time_limit"

	// KindConnections limits concurrent active connections.
	KindConnections LimitKind = "connection_limit"

	// KindSpeed limits transfer speed in bytes per second.
	KindSpeed LimitKind = "speed_limit"

	// KindDaily limits bytes transferred in a rolling day.
	KindDaily LimitKind = "daily_limit"

	// KindWeekly limits bytes transferred in a rolling week.
	KindWeekly LimitKind = "weekly_limit"

	// KindMonthly limits bytes transferred in a rolling month.
	KindMonthly LimitKind = "monthly_limit"
)

// Kinds returns every known limit kind in a stable order.
func Kinds() []LimitKind {
	return []LimitKind{
		KindData,
		KindTime,
		KindConnections,
		KindSpeed,
		KindDaily,
		KindWeekly,
		KindMonthly,
	}
}

// Valid reports whether k is a member of the closed kind enumeration.
func (k LimitKind) Valid() bool {
	switch k {
	case KindData, KindTime, KindConnections, KindSpeed,
		KindDaily, KindWeekly, KindMonthly:
		return true
	}
	return false
}

// Unit returns the display unit for a kind. Comparisons are always
// same-kind numeric; the unit is informational only.
func (k LimitKind) Unit() string {
	switch k {
	case KindData, KindDaily, KindWeekly, KindMonthly:
		return "bytes"
	case KindTime:
		return "seconds"
	case KindConnections:
		return "connections"
	case KindSpeed:
		return "bytes/s"
	default:
		return ""
	}
}

// ActionKind defines what to do when a limit is exceeded.
type ActionKind string

const (
	// ActionNotify only arms the notification path; the account is untouched.
	ActionNotify ActionKind = "notify"

	// ActionDisable disables the account and revokes its active sessions.
	ActionDisable ActionKind = "disable"

	// ActionThrottle applies a rate restriction to the account's sessions.
	// Best-effort: transports that cannot throttle live degrade to a
	// logged no-op.
	ActionThrottle ActionKind = "throttle"

	// ActionDelete permanently removes the account and its sessions.
	ActionDelete ActionKind = "delete"
)

// Valid reports whether a is a member of the closed action enumeration.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionNotify, ActionDisable, ActionThrottle, ActionDelete:
		return true
	}
	return false
}

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	// ChannelEmail delivers over SMTP.
	ChannelEmail ChannelType = "email"

	// ChannelTelegram delivers over the Telegram Bot API.
	ChannelTelegram ChannelType = "telegram"

	// ChannelWebhook delivers as a JSON POST to an arbitrary URL.
	ChannelWebhook ChannelType = "webhook"
)

// Valid reports whether c is a member of the closed channel enumeration.
func (c ChannelType) Valid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelWebhook:
		return true
	}
	return false
}

// Usage is a fixed mapping from limit kind to the current observed value.
// Unknown kinds are rejected at the usage-source boundary and never reach
// the evaluator.
type Usage map[LimitKind]int64

// LimitRule configures a threshold and an action for one (username, kind)
// pair. At most one enabled rule may exist per pair.
type LimitRule struct {
	// ID is the storage-assigned row identifier.
	ID int64

	// Username identifies the account the rule applies to.
	Username string

	// Kind is the usage metric this rule constrains.
	Kind LimitKind

	// Threshold is the limit value in the kind's implicit unit.
	Threshold int64

	// Action is taken when the threshold is reached or surpassed.
	Action ActionKind

	// Enabled rules are evaluated on every sweep; disabled rules are
	// skipped entirely.
	Enabled bool

	// WarningFraction is the proportion of the threshold (0-1) at which
	// a non-exceeding warning notification fires.
	WarningFraction float64

	// WebhookURL is an optional per-rule webhook target notified in
	// addition to the user's subscriptions.
	WebhookURL string

	// Description is optional free text for admins.
	Description string

	// AutoReset enables scheduled resolution of this rule's violations.
	AutoReset bool

	// ResetSchedule is a cron expression evaluated when AutoReset is set.
	ResetSchedule string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks rule fields against the closed enumerations.
func (r *LimitRule) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidRule)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown limit kind %q", ErrInvalidRule, r.Kind)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRule, r.Action)
	}
	if r.Threshold < 0 {
		return fmt.Errorf("%w: threshold cannot be negative", ErrInvalidRule)
	}
	if r.WarningFraction < 0 || r.WarningFraction > 1 {
		return fmt.Errorf("%w: warning fraction %v outside [0,1]", ErrInvalidRule, r.WarningFraction)
	}
	return nil
}

// Violation is the immutable record of one exceeded-limit event. It is
// created by the monitor when a rule evaluates to exceeded and is mutated
// only to mark it resolved or notified.
type Violation struct {
	// ID is a UUID assigned when the violation is recorded.
	ID string

	// Username is the account that exceeded the limit.
	Username string

	// Kind is the limit kind that was exceeded.
	Kind LimitKind

	// Observed is the usage value at the time of the violation.
	Observed int64

	// Threshold is the rule's threshold at the time of the violation.
	Threshold int64

	// ActionTaken is the enforcement action dispatched for this violation.
	ActionTaken ActionKind

	// OccurredAt is when the violation was observed, in UTC.
	OccurredAt time.Time

	// Resolved marks the violation as dealt with.
	Resolved   bool
	ResolvedAt time.Time

	// NotificationSent records whether at least one channel delivered.
	NotificationSent bool

	// AdminNote is optional free text set when resolving.
	AdminNote string
}

// TemplateRule is one rule specification inside a template. It carries no
// username; the username is bound when the template is applied.
type TemplateRule struct {
	Kind            LimitKind  `yaml:"kind" json:"kind"`
	Threshold       int64      `yaml:"threshold" json:"threshold"`
	Action          ActionKind `yaml:"action" json:"action"`
	WarningFraction float64    `yaml:"warning_fraction" json:"warning_fraction"`
	Description     string     `yaml:"description,omitempty" json:"description,omitempty"`
}

// LimitTemplate is a named, ordered set of rule specifications. Applying a
// template to a user atomically replaces that user's rules for the kinds
// present in the template.
type LimitTemplate struct {
	ID          int64
	Name        string
	Description string
	Rules       []TemplateRule
	Default     bool
	CreatedAt   time.Time
}

// NotificationSubscription routes warning and violation messages for one
// (username, kind) pair to one channel. A rule may have zero, one, or many
// subscriptions, each with its own warning threshold.
type NotificationSubscription struct {
	ID int64

	Username string
	Kind     LimitKind

	// Channel selects the delivery transport.
	Channel ChannelType

	// Recipient is channel-specific: an email address, a chat ID, or a
	// webhook URL.
	Recipient string

	Enabled bool

	// WarningFraction overrides the rule's warning threshold for this
	// subscription.
	WarningFraction float64
}

// Stats are aggregate counters computed on demand from the store;
// the core never caches them.
type Stats struct {
	UsersWithRules       int `json:"users_with_rules"`
	UnresolvedViolations int `json:"unresolved_violations"`
	Templates            int `json:"templates"`
	EnabledSubscriptions int `json:"enabled_subscriptions"`
}

// Error types for rule management and sweep failures.
var (
	// ErrInvalidRule is returned when a rule fails enum or range validation.
	ErrInvalidRule = errors.New("invalid limit rule")

	// ErrRuleNotFound is returned when no rule exists for a (user, kind) pair.
	ErrRuleNotFound = errors.New("limit rule not found")

	// ErrTemplateNotFound is returned when a template ID does not exist.
	ErrTemplateNotFound = errors.New("limit template not found")

	// ErrViolationNotFound is returned when a violation ID does not exist.
	ErrViolationNotFound = errors.New("violation not found")

	// ErrUsageUnavailable is returned when the usage source cannot supply
	// a snapshot for a user; the sweep skips that user.
	ErrUsageUnavailable = errors.New("usage unavailable")
)
