package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"halcyon-net/warden/pkg/limits"
)

// SQLiteStore implements limits.Store using SQLite for persistence.
// Suitable for single-instance deployments where rules and violation history
// must survive restarts.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent performance
// and automatic checkpointing to balance write performance with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	// Prepared statements for the sweep hot path. Admin operations go
	// through the database directly.
	usersStmt         *sql.Stmt
	rulesStmt         *sql.Stmt
	saveViolationStmt *sql.Stmt
	markNotifiedStmt  *sql.Stmt
	subsStmt          *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS limit_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		kind TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		action TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		warning_fraction REAL NOT NULL DEFAULT 0.8,
		webhook_url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		auto_reset INTEGER NOT NULL DEFAULT 0,
		reset_schedule TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (username, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_rules_username ON limit_rules(username);
	CREATE INDEX IF NOT EXISTS idx_rules_enabled ON limit_rules(enabled);

	CREATE TABLE IF NOT EXISTS limit_violations (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		kind TEXT NOT NULL,
		observed INTEGER NOT NULL,
		threshold INTEGER NOT NULL,
		action_taken TEXT NOT NULL,
		occurred_at INTEGER NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at INTEGER,
		notification_sent INTEGER NOT NULL DEFAULT 0,
		admin_note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_violations_username ON limit_violations(username, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_violations_resolved ON limit_violations(resolved);

	CREATE TABLE IF NOT EXISTS limit_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		kind TEXT NOT NULL,
		channel TEXT NOT NULL,
		recipient TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		warning_fraction REAL NOT NULL DEFAULT 0,
		UNIQUE (username, kind, channel, recipient)
	);

	CREATE TABLE IF NOT EXISTS limit_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		rules TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.usersStmt, err = s.db.Prepare(`
		SELECT DISTINCT username FROM limit_rules
		WHERE enabled = 1
		ORDER BY username
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare users statement: %w", err)
	}

	s.rulesStmt, err = s.db.Prepare(`
		SELECT id, username, kind, threshold, action, enabled, warning_fraction,
		       webhook_url, description, auto_reset, reset_schedule, created_at, updated_at
		FROM limit_rules
		WHERE username = ?
		ORDER BY kind
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rules statement: %w", err)
	}

	s.saveViolationStmt, err = s.db.Prepare(`
		INSERT INTO limit_violations
			(id, username, kind, observed, threshold, action_taken, occurred_at, resolved, notification_sent, admin_note)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare violation statement: %w", err)
	}

	s.markNotifiedStmt, err = s.db.Prepare(`
		UPDATE limit_violations SET notification_sent = 1 WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare notified statement: %w", err)
	}

	s.subsStmt, err = s.db.Prepare(`
		SELECT id, username, kind, channel, recipient, enabled, warning_fraction
		FROM limit_subscriptions
		WHERE username = ? AND kind = ?
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare subscriptions statement: %w", err)
	}

	return nil
}

// UsersWithEnabledRules returns the distinct usernames with at least one
// enabled rule.
func (s *SQLiteStore) UsersWithEnabledRules(ctx context.Context) ([]string, error) {
	rows, err := s.usersStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		users = append(users, username)
	}
	return users, rows.Err()
}

func scanRule(scan func(dest ...any) error) (limits.LimitRule, error) {
	var (
		rule               limits.LimitRule
		kind, action       string
		enabled, autoReset int
		createdAt          int64
		updatedAt          int64
	)
	err := scan(&rule.ID, &rule.Username, &kind, &rule.Threshold, &action,
		&enabled, &rule.WarningFraction, &rule.WebhookURL, &rule.Description,
		&autoReset, &rule.ResetSchedule, &createdAt, &updatedAt)
	if err != nil {
		return rule, err
	}
	rule.Kind = limits.LimitKind(kind)
	rule.Action = limits.ActionKind(action)
	rule.Enabled = enabled != 0
	rule.AutoReset = autoReset != 0
	rule.CreatedAt = time.Unix(createdAt, 0).UTC()
	rule.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rule, nil
}

// Rules returns all rules for a user, ordered by kind.
func (s *SQLiteStore) Rules(ctx context.Context, username string) ([]limits.LimitRule, error) {
	rows, err := s.rulesStmt.QueryContext(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []limits.LimitRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

const upsertRuleSQL = `
	INSERT INTO limit_rules
		(username, kind, threshold, action, enabled, warning_fraction,
		 webhook_url, description, auto_reset, reset_schedule, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (username, kind) DO UPDATE SET
		threshold = excluded.threshold,
		action = excluded.action,
		enabled = excluded.enabled,
		warning_fraction = excluded.warning_fraction,
		webhook_url = excluded.webhook_url,
		description = excluded.description,
		auto_reset = excluded.auto_reset,
		reset_schedule = excluded.reset_schedule,
		updated_at = excluded.updated_at
`

// UpsertRule inserts or replaces the rule for (rule.Username, rule.Kind).
func (s *SQLiteStore) UpsertRule(ctx context.Context, rule *limits.LimitRule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, upsertRuleSQL,
		rule.Username, string(rule.Kind), rule.Threshold, string(rule.Action),
		boolInt(rule.Enabled), rule.WarningFraction, rule.WebhookURL,
		rule.Description, boolInt(rule.AutoReset), rule.ResetSchedule,
		rule.CreatedAt.Unix(), rule.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert rule: %w", err)
	}
	return nil
}

// DeleteRule removes the rule for a (username, kind) pair.
func (s *SQLiteStore) DeleteRule(ctx context.Context, username string, kind limits.LimitKind) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM limit_rules WHERE username = ? AND kind = ?`,
		username, string(kind))
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return limits.ErrRuleNotFound
	}
	return nil
}

// ReplaceRulesByKind atomically replaces the user's rules for the kinds
// present in rules, in one transaction.
func (s *SQLiteStore) ReplaceRulesByKind(ctx context.Context, username string, rules []limits.LimitRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, rule := range rules {
		rule.Username = username
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, upsertRuleSQL,
			rule.Username, string(rule.Kind), rule.Threshold, string(rule.Action),
			boolInt(rule.Enabled), rule.WarningFraction, rule.WebhookURL,
			rule.Description, boolInt(rule.AutoReset), rule.ResetSchedule,
			rule.CreatedAt.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("failed to replace rule %s: %w", rule.Kind, err)
		}
	}

	return tx.Commit()
}

// RulesWithResetSchedule returns every enabled rule with auto-reset set and
// a non-empty schedule.
func (s *SQLiteStore) RulesWithResetSchedule(ctx context.Context) ([]limits.LimitRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, kind, threshold, action, enabled, warning_fraction,
		       webhook_url, description, auto_reset, reset_schedule, created_at, updated_at
		FROM limit_rules
		WHERE enabled = 1 AND auto_reset = 1 AND reset_schedule != ''
		ORDER BY username, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reset rules: %w", err)
	}
	defer rows.Close()

	var rules []limits.LimitRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveViolation persists a new violation record.
func (s *SQLiteStore) SaveViolation(ctx context.Context, v *limits.Violation) error {
	if v.ID == "" {
		return fmt.Errorf("violation id cannot be empty")
	}
	if v.OccurredAt.IsZero() {
		v.OccurredAt = time.Now().UTC()
	}

	_, err := s.saveViolationStmt.ExecContext(ctx,
		v.ID, v.Username, string(v.Kind), v.Observed, v.Threshold,
		string(v.ActionTaken), v.OccurredAt.Unix(),
		boolInt(v.NotificationSent), v.AdminNote)
	if err != nil {
		return fmt.Errorf("failed to save violation: %w", err)
	}
	return nil
}

// Violations returns a user's violations, newest first.
func (s *SQLiteStore) Violations(ctx context.Context, username string, limit int) ([]limits.Violation, error) {
	query := `
		SELECT id, username, kind, observed, threshold, action_taken,
		       occurred_at, resolved, resolved_at, notification_sent, admin_note
		FROM limit_violations
		WHERE username = ?
		ORDER BY occurred_at DESC, id
	`
	args := []any{username}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	var violations []limits.Violation
	for rows.Next() {
		var (
			v                  limits.Violation
			kind, action       string
			resolved, notified int
			occurredAt         int64
			resolvedAt         sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.Username, &kind, &v.Observed, &v.Threshold,
			&action, &occurredAt, &resolved, &resolvedAt, &notified, &v.AdminNote); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		v.Kind = limits.LimitKind(kind)
		v.ActionTaken = limits.ActionKind(action)
		v.OccurredAt = time.Unix(occurredAt, 0).UTC()
		v.Resolved = resolved != 0
		v.NotificationSent = notified != 0
		if resolvedAt.Valid {
			v.ResolvedAt = time.Unix(resolvedAt.Int64, 0).UTC()
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// ResolveViolation marks a violation resolved with an optional note.
func (s *SQLiteStore) ResolveViolation(ctx context.Context, id string, note string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE limit_violations
		SET resolved = 1, resolved_at = ?, admin_note = ?
		WHERE id = ?
	`, time.Now().UTC().Unix(), note, id)
	if err != nil {
		return fmt.Errorf("failed to resolve violation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return limits.ErrViolationNotFound
	}
	return nil
}

// ResolveUserViolations resolves all unresolved violations for a
// (username, kind) pair.
func (s *SQLiteStore) ResolveUserViolations(ctx context.Context, username string, kind limits.LimitKind) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE limit_violations
		SET resolved = 1, resolved_at = ?
		WHERE username = ? AND kind = ? AND resolved = 0
	`, time.Now().UTC().Unix(), username, string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve violations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// MarkViolationNotified sets the notification-sent flag on a violation.
func (s *SQLiteStore) MarkViolationNotified(ctx context.Context, id string) error {
	result, err := s.markNotifiedStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark violation notified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return limits.ErrViolationNotFound
	}
	return nil
}

// Subscriptions returns the subscriptions for a (username, kind) pair.
func (s *SQLiteStore) Subscriptions(ctx context.Context, username string, kind limits.LimitKind) ([]limits.NotificationSubscription, error) {
	rows, err := s.subsStmt.QueryContext(ctx, username, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []limits.NotificationSubscription
	for rows.Next() {
		var (
			sub        limits.NotificationSubscription
			k, channel string
			enabled    int
		)
		if err := rows.Scan(&sub.ID, &sub.Username, &k, &channel,
			&sub.Recipient, &enabled, &sub.WarningFraction); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sub.Kind = limits.LimitKind(k)
		sub.Channel = limits.ChannelType(channel)
		sub.Enabled = enabled != 0
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveSubscription inserts or updates a subscription.
func (s *SQLiteStore) SaveSubscription(ctx context.Context, sub *limits.NotificationSubscription) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO limit_subscriptions
			(username, kind, channel, recipient, enabled, warning_fraction)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, kind, channel, recipient) DO UPDATE SET
			enabled = excluded.enabled,
			warning_fraction = excluded.warning_fraction
	`, sub.Username, string(sub.Kind), string(sub.Channel), sub.Recipient,
		boolInt(sub.Enabled), sub.WarningFraction)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	if sub.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			sub.ID = id
		}
	}
	return nil
}

// Templates returns all templates ordered by name.
func (s *SQLiteStore) Templates(ctx context.Context) ([]limits.LimitTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, rules, is_default, created_at
		FROM limit_templates
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []limits.LimitTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// Template returns one template by ID.
func (s *SQLiteStore) Template(ctx context.Context, id int64) (*limits.LimitTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, rules, is_default, created_at
		FROM limit_templates
		WHERE id = ?
	`, id)

	tpl, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, limits.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func scanTemplate(scan func(dest ...any) error) (limits.LimitTemplate, error) {
	var (
		tpl       limits.LimitTemplate
		rulesJSON string
		isDefault int
		createdAt int64
	)
	err := scan(&tpl.ID, &tpl.Name, &tpl.Description, &rulesJSON, &isDefault, &createdAt)
	if err != nil {
		return tpl, err
	}
	if err := json.Unmarshal([]byte(rulesJSON), &tpl.Rules); err != nil {
		return tpl, fmt.Errorf("failed to unmarshal template rules: %w", err)
	}
	tpl.Default = isDefault != 0
	tpl.CreatedAt = time.Unix(createdAt, 0).UTC()
	return tpl, nil
}

// SaveTemplate inserts or updates a template and its rule set.
func (s *SQLiteStore) SaveTemplate(ctx context.Context, tpl *limits.LimitTemplate) error {
	rulesJSON, err := json.Marshal(tpl.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal template rules: %w", err)
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO limit_templates (name, description, rules, is_default, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			rules = excluded.rules,
			is_default = excluded.is_default
	`, tpl.Name, tpl.Description, string(rulesJSON), boolInt(tpl.Default), tpl.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	if tpl.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			tpl.ID = id
		}
	}
	return nil
}

// Stats computes the aggregate counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*limits.Stats, error) {
	stats := &limits.Stats{}
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT username) FROM limit_rules),
			(SELECT COUNT(*) FROM limit_violations WHERE resolved = 0),
			(SELECT COUNT(*) FROM limit_templates),
			(SELECT COUNT(*) FROM limit_subscriptions WHERE enabled = 1)
	`)
	if err := row.Scan(&stats.UsersWithRules, &stats.UnresolvedViolations,
		&stats.Templates, &stats.EnabledSubscriptions); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// Close releases resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.usersStmt, s.rulesStmt, s.saveViolationStmt, s.markNotifiedStmt, s.subsStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
