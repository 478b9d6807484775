package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/limits/enforcement"
	"halcyon-net/warden/pkg/limits/notify"
)

type monitorStore struct {
	limits.Store

	mu           sync.Mutex
	users        []string
	usersErr     error
	rules        map[string][]limits.LimitRule
	rulesErr     map[string]error
	panicUser    string
	subs         map[string][]limits.NotificationSubscription
	violations   []limits.Violation
	violationErr error
	notifiedIDs  []string
}

func newMonitorStore() *monitorStore {
	return &monitorStore{
		rules:    make(map[string][]limits.LimitRule),
		rulesErr: make(map[string]error),
		subs:     make(map[string][]limits.NotificationSubscription),
	}
}

func (s *monitorStore) UsersWithEnabledRules(_ context.Context) ([]string, error) {
	return s.users, s.usersErr
}

func (s *monitorStore) Rules(_ context.Context, username string) ([]limits.LimitRule, error) {
	if username == s.panicUser {
		panic("corrupt rule row for " + username)
	}
	if err := s.rulesErr[username]; err != nil {
		return nil, err
	}
	return s.rules[username], nil
}

func (s *monitorStore) Subscriptions(_ context.Context, username string, _ limits.LimitKind) ([]limits.NotificationSubscription, error) {
	return s.subs[username], nil
}

func (s *monitorStore) SaveViolation(_ context.Context, v *limits.Violation) error {
	if s.violationErr != nil {
		return s.violationErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, *v)
	return nil
}

func (s *monitorStore) MarkViolationNotified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiedIDs = append(s.notifiedIDs, id)
	return nil
}

type fakeSource struct {
	mu    sync.Mutex
	usage map[string]limits.Usage
	errs  map[string]error
	calls []string
}

func (f *fakeSource) Snapshot(_ context.Context, username string) (limits.Usage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, username)
	f.mu.Unlock()
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return f.usage[username], nil
}

func (f *fakeSource) Close() error { return nil }

type fakeEnforcer struct {
	mu    sync.Mutex
	calls []limits.Evaluation
	err   error
}

func (f *fakeEnforcer) Enforce(_ context.Context, _ string, ev limits.Evaluation) (*enforcement.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ev)
	if f.err != nil {
		return &enforcement.Result{Action: ev.Action}, f.err
	}
	return &enforcement.Result{Action: ev.Action, Applied: true}, nil
}

type dispatched struct {
	subs    []limits.NotificationSubscription
	message string
}

type fakeNotifier struct {
	mu       sync.Mutex
	dispatch []dispatched
	fail     bool
}

func (f *fakeNotifier) Dispatch(_ context.Context, subs []limits.NotificationSubscription, message string) []notify.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatch = append(f.dispatch, dispatched{subs: subs, message: message})

	outcomes := make([]notify.Outcome, len(subs))
	for i, sub := range subs {
		outcomes[i] = notify.Outcome{Channel: sub.Channel, Recipient: sub.Recipient}
		if f.fail {
			outcomes[i].Err = errors.New("delivery failed")
		}
	}
	return outcomes
}

func dataRule(username string, threshold int64, action limits.ActionKind) limits.LimitRule {
	return limits.LimitRule{
		Username:        username,
		Kind:            limits.KindData,
		Threshold:       threshold,
		Action:          action,
		Enabled:         true,
		WarningFraction: 0.8,
	}
}

func newTestMonitor(store *monitorStore, source *fakeSource, enforcer *fakeEnforcer, notifier *fakeNotifier) *Monitor {
	return New(store, source, enforcer, notifier, Config{Workers: 2}, nil, nil)
}

func TestSweepExceededFlow(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"alice"}
	store.rules["alice"] = []limits.LimitRule{dataRule("alice", 1000, limits.ActionDisable)}
	store.subs["alice"] = []limits.NotificationSubscription{
		{Channel: limits.ChannelEmail, Recipient: "alice@example.com", Enabled: true},
	}
	source := &fakeSource{usage: map[string]limits.Usage{
		"alice": {limits.KindData: 1500},
	}}
	enforcer := &fakeEnforcer{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, enforcer, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(store.violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(store.violations))
	}
	v := store.violations[0]
	if v.Username != "alice" || v.Kind != limits.KindData || v.Observed != 1500 || v.ActionTaken != limits.ActionDisable {
		t.Errorf("Unexpected violation: %+v", v)
	}
	if v.ID == "" {
		t.Error("Expected violation ID to be assigned")
	}

	if len(enforcer.calls) != 1 || enforcer.calls[0].Action != limits.ActionDisable {
		t.Errorf("Expected 1 disable enforcement, got %+v", enforcer.calls)
	}

	if len(notifier.dispatch) != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", len(notifier.dispatch))
	}
	msg := notifier.dispatch[0].message
	if !strings.Contains(msg, "exceeded data_limit limit") || !strings.Contains(msg, "disable") {
		t.Errorf("Unexpected violation message: %q", msg)
	}

	if len(store.notifiedIDs) != 1 || store.notifiedIDs[0] != v.ID {
		t.Errorf("Expected violation %s marked notified, got %v", v.ID, store.notifiedIDs)
	}
}

func TestSweepWarningFlow(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"bob"}
	store.rules["bob"] = []limits.LimitRule{dataRule("bob", 1000, limits.ActionDisable)}
	store.subs["bob"] = []limits.NotificationSubscription{
		{Channel: limits.ChannelEmail, Recipient: "bob@example.com", Enabled: true},
	}
	source := &fakeSource{usage: map[string]limits.Usage{
		"bob": {limits.KindData: 850},
	}}
	enforcer := &fakeEnforcer{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, enforcer, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(store.violations) != 0 {
		t.Errorf("Expected no violations for a warning, got %d", len(store.violations))
	}
	if len(enforcer.calls) != 0 {
		t.Errorf("Expected no enforcement for a warning, got %d calls", len(enforcer.calls))
	}
	if len(notifier.dispatch) != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", len(notifier.dispatch))
	}
	if !strings.Contains(notifier.dispatch[0].message, "85.0% of data_limit") {
		t.Errorf("Unexpected warning message: %q", notifier.dispatch[0].message)
	}
}

func TestSweepIsolatesUserFailures(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"broken", "ok"}
	store.rules["ok"] = []limits.LimitRule{dataRule("ok", 1000, limits.ActionNotify)}
	source := &fakeSource{
		usage: map[string]limits.Usage{"ok": {limits.KindData: 2000}},
		errs:  map[string]error{"broken": limits.ErrUsageUnavailable},
	}
	enforcer := &fakeEnforcer{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, enforcer, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Expected sweep to survive a per-user failure, got %v", err)
	}

	if len(store.violations) != 1 || store.violations[0].Username != "ok" {
		t.Errorf("Expected the healthy user to be checked, got %+v", store.violations)
	}
}

func TestSweepContainsPerUserPanic(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"bad", "ok"}
	store.panicUser = "bad"
	store.rules["ok"] = []limits.LimitRule{dataRule("ok", 1000, limits.ActionNotify)}
	source := &fakeSource{usage: map[string]limits.Usage{
		"bad": {limits.KindData: 100},
		"ok":  {limits.KindData: 2000},
	}}
	enforcer := &fakeEnforcer{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, enforcer, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Expected sweep to survive a per-user panic, got %v", err)
	}

	if len(store.violations) != 1 || store.violations[0].Username != "ok" {
		t.Errorf("Expected the healthy user to be checked, got %+v", store.violations)
	}
	if len(enforcer.calls) != 1 {
		t.Errorf("Expected 1 enforcement for the healthy user, got %d calls", len(enforcer.calls))
	}
}

func TestSweepFailsWhenListingFails(t *testing.T) {
	store := newMonitorStore()
	store.usersErr = errors.New("db closed")

	m := newTestMonitor(store, &fakeSource{}, &fakeEnforcer{}, &fakeNotifier{})
	if err := m.Sweep(context.Background()); err == nil {
		t.Error("Expected sweep error when user listing fails")
	}
}

func TestSweepViolationWriteFailureStillEnforces(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"carol"}
	store.rules["carol"] = []limits.LimitRule{dataRule("carol", 1000, limits.ActionDisable)}
	store.violationErr = errors.New("disk full")
	source := &fakeSource{usage: map[string]limits.Usage{
		"carol": {limits.KindData: 5000},
	}}
	enforcer := &fakeEnforcer{}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, enforcer, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(enforcer.calls) != 1 {
		t.Errorf("Expected enforcement despite violation write failure, got %d calls", len(enforcer.calls))
	}
	// An unrecorded violation must not be marked notified.
	if len(store.notifiedIDs) != 0 {
		t.Errorf("Expected no notified marks, got %v", store.notifiedIDs)
	}
}

func TestSweepFailedDeliveryNotMarkedNotified(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"dave"}
	store.rules["dave"] = []limits.LimitRule{dataRule("dave", 1000, limits.ActionNotify)}
	store.subs["dave"] = []limits.NotificationSubscription{
		{Channel: limits.ChannelEmail, Recipient: "dave@example.com", Enabled: true},
	}
	source := &fakeSource{usage: map[string]limits.Usage{
		"dave": {limits.KindData: 2000},
	}}
	notifier := &fakeNotifier{fail: true}

	m := newTestMonitor(store, source, &fakeEnforcer{}, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(store.violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(store.violations))
	}
	if len(store.notifiedIDs) != 0 {
		t.Errorf("Expected violation not marked notified after failed delivery, got %v", store.notifiedIDs)
	}
}

func TestSweepRuleWebhookAddsSyntheticSubscription(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"erin"}
	rule := dataRule("erin", 1000, limits.ActionNotify)
	rule.WebhookURL = "https://ops.example.com/hook"
	store.rules["erin"] = []limits.LimitRule{rule}
	source := &fakeSource{usage: map[string]limits.Usage{
		"erin": {limits.KindData: 2000},
	}}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, &fakeEnforcer{}, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(notifier.dispatch) != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", len(notifier.dispatch))
	}
	subs := notifier.dispatch[0].subs
	if len(subs) != 1 || subs[0].Channel != limits.ChannelWebhook || subs[0].Recipient != rule.WebhookURL {
		t.Errorf("Expected synthetic webhook subscription, got %+v", subs)
	}
}

func TestSweepWarningRespectsSubscriptionFraction(t *testing.T) {
	store := newMonitorStore()
	store.users = []string{"frank"}
	store.rules["frank"] = []limits.LimitRule{dataRule("frank", 1000, limits.ActionNotify)}
	store.subs["frank"] = []limits.NotificationSubscription{
		{Channel: limits.ChannelEmail, Recipient: "early@example.com", Enabled: true, WarningFraction: 0.5},
		{Channel: limits.ChannelEmail, Recipient: "late@example.com", Enabled: true, WarningFraction: 0.95},
	}
	// 85% crosses the rule's 0.8 fraction and the 0.5 subscription, but
	// not the 0.95 subscription.
	source := &fakeSource{usage: map[string]limits.Usage{
		"frank": {limits.KindData: 850},
	}}
	notifier := &fakeNotifier{}

	m := newTestMonitor(store, source, &fakeEnforcer{}, notifier)
	if err := m.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(notifier.dispatch) != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", len(notifier.dispatch))
	}
	subs := notifier.dispatch[0].subs
	if len(subs) != 1 || subs[0].Recipient != "early@example.com" {
		t.Errorf("Expected only the crossed subscription, got %+v", subs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newMonitorStore()
	m := New(store, &fakeSource{}, &fakeEnforcer{}, &fakeNotifier{},
		Config{Interval: time.Hour, ErrorBackoff: time.Hour}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to stop promptly after cancel")
	}
}
