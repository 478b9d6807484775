package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"halcyon-net/warden/pkg/limits"
)

// MemoryStore implements limits.Store using in-memory maps. It is the
// default for tests and for ephemeral deployments; all data is lost when
// the process exits.
//
// MemoryStore is thread-safe using a single sync.RWMutex.
type MemoryStore struct {
	mu sync.RWMutex

	// rules maps composite key (username:kind) to the rule.
	rules map[string]limits.LimitRule

	// violations maps violation ID to the record.
	violations map[string]limits.Violation

	subscriptions map[int64]limits.NotificationSubscription
	templates     map[int64]limits.LimitTemplate

	nextRuleID     int64
	nextSubID      int64
	nextTemplateID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:         make(map[string]limits.LimitRule),
		violations:    make(map[string]limits.Violation),
		subscriptions: make(map[int64]limits.NotificationSubscription),
		templates:     make(map[int64]limits.LimitTemplate),
	}
}

func ruleKey(username string, kind limits.LimitKind) string {
	return username + ":" + string(kind)
}

// UsersWithEnabledRules returns the distinct usernames with at least one
// enabled rule, sorted for deterministic sweeps.
func (m *MemoryStore) UsersWithEnabledRules(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, rule := range m.rules {
		if rule.Enabled {
			seen[rule.Username] = true
		}
	}
	users := make([]string, 0, len(seen))
	for username := range seen {
		users = append(users, username)
	}
	sort.Strings(users)
	return users, nil
}

// Rules returns all rules for a user, ordered by kind.
func (m *MemoryStore) Rules(_ context.Context, username string) ([]limits.LimitRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []limits.LimitRule
	for _, rule := range m.rules {
		if rule.Username == username {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Kind < rules[j].Kind
	})
	return rules, nil
}

// UpsertRule inserts or replaces the rule for (rule.Username, rule.Kind).
func (m *MemoryStore) UpsertRule(_ context.Context, rule *limits.LimitRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ruleKey(rule.Username, rule.Kind)
	now := time.Now().UTC()
	if existing, ok := m.rules[key]; ok {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
	} else {
		m.nextRuleID++
		rule.ID = m.nextRuleID
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
	}
	rule.UpdatedAt = now
	m.rules[key] = *rule
	return nil
}

// DeleteRule removes the rule for a (username, kind) pair.
func (m *MemoryStore) DeleteRule(_ context.Context, username string, kind limits.LimitKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ruleKey(username, kind)
	if _, ok := m.rules[key]; !ok {
		return limits.ErrRuleNotFound
	}
	delete(m.rules, key)
	return nil
}

// ReplaceRulesByKind atomically replaces the user's rules for the kinds
// present in rules.
func (m *MemoryStore) ReplaceRulesByKind(_ context.Context, username string, rules []limits.LimitRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, rule := range rules {
		key := ruleKey(username, rule.Kind)
		rule.Username = username
		if existing, ok := m.rules[key]; ok {
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
		} else {
			m.nextRuleID++
			rule.ID = m.nextRuleID
			if rule.CreatedAt.IsZero() {
				rule.CreatedAt = now
			}
		}
		rule.UpdatedAt = now
		m.rules[key] = rule
	}
	return nil
}

// RulesWithResetSchedule returns every enabled rule with auto-reset set and
// a non-empty schedule.
func (m *MemoryStore) RulesWithResetSchedule(_ context.Context) ([]limits.LimitRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []limits.LimitRule
	for _, rule := range m.rules {
		if rule.Enabled && rule.AutoReset && rule.ResetSchedule != "" {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Username != rules[j].Username {
			return rules[i].Username < rules[j].Username
		}
		return rules[i].Kind < rules[j].Kind
	})
	return rules, nil
}

// SaveViolation persists a new violation record.
func (m *MemoryStore) SaveViolation(_ context.Context, v *limits.Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.OccurredAt.IsZero() {
		v.OccurredAt = time.Now().UTC()
	}
	m.violations[v.ID] = *v
	return nil
}

// Violations returns a user's violations, newest first.
func (m *MemoryStore) Violations(_ context.Context, username string, limit int) ([]limits.Violation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []limits.Violation
	for _, v := range m.violations {
		if v.Username == username {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResolveViolation marks a violation resolved with an optional note.
func (m *MemoryStore) ResolveViolation(_ context.Context, id string, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.violations[id]
	if !ok {
		return limits.ErrViolationNotFound
	}
	v.Resolved = true
	v.ResolvedAt = time.Now().UTC()
	v.AdminNote = note
	m.violations[id] = v
	return nil
}

// ResolveUserViolations resolves all unresolved violations for a
// (username, kind) pair.
func (m *MemoryStore) ResolveUserViolations(_ context.Context, username string, kind limits.LimitKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	resolved := 0
	for id, v := range m.violations {
		if v.Username == username && v.Kind == kind && !v.Resolved {
			v.Resolved = true
			v.ResolvedAt = now
			m.violations[id] = v
			resolved++
		}
	}
	return resolved, nil
}

// MarkViolationNotified sets the notification-sent flag on a violation.
func (m *MemoryStore) MarkViolationNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.violations[id]
	if !ok {
		return limits.ErrViolationNotFound
	}
	v.NotificationSent = true
	m.violations[id] = v
	return nil
}

// Subscriptions returns the subscriptions for a (username, kind) pair.
func (m *MemoryStore) Subscriptions(_ context.Context, username string, kind limits.LimitKind) ([]limits.NotificationSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var subs []limits.NotificationSubscription
	for _, sub := range m.subscriptions {
		if sub.Username == username && sub.Kind == kind {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

// SaveSubscription inserts or updates a subscription.
func (m *MemoryStore) SaveSubscription(_ context.Context, sub *limits.NotificationSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == 0 {
		m.nextSubID++
		sub.ID = m.nextSubID
	}
	m.subscriptions[sub.ID] = *sub
	return nil
}

// Templates returns all templates ordered by name.
func (m *MemoryStore) Templates(_ context.Context) ([]limits.LimitTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	templates := make([]limits.LimitTemplate, 0, len(m.templates))
	for _, tpl := range m.templates {
		templates = append(templates, tpl)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

// Template returns one template by ID.
func (m *MemoryStore) Template(_ context.Context, id int64) (*limits.LimitTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.templates[id]
	if !ok {
		return nil, limits.ErrTemplateNotFound
	}
	return &tpl, nil
}

// SaveTemplate inserts or updates a template and its rule set.
func (m *MemoryStore) SaveTemplate(_ context.Context, tpl *limits.LimitTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tpl.ID == 0 {
		m.nextTemplateID++
		tpl.ID = m.nextTemplateID
		if tpl.CreatedAt.IsZero() {
			tpl.CreatedAt = time.Now().UTC()
		}
	}
	m.templates[tpl.ID] = *tpl
	return nil
}

// Stats computes the aggregate counters in one pass.
func (m *MemoryStore) Stats(_ context.Context) (*limits.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[string]bool)
	for _, rule := range m.rules {
		users[rule.Username] = true
	}

	stats := &limits.Stats{
		UsersWithRules: len(users),
		Templates:      len(m.templates),
	}
	for _, v := range m.violations {
		if !v.Resolved {
			stats.UnresolvedViolations++
		}
	}
	for _, sub := range m.subscriptions {
		if sub.Enabled {
			stats.EnabledSubscriptions++
		}
	}
	return stats, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
