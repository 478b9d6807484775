package enforcement

import (
	"context"
	"errors"
	"testing"

	"halcyon-net/warden/pkg/accountcontrol"
	"halcyon-net/warden/pkg/limits"
)

type fakeController struct {
	disableCalls  int
	throttleCalls int
	deleteCalls   int

	disableErr  error
	throttleErr error
}

func (f *fakeController) Disable(_ context.Context, _ string) error {
	f.disableCalls++
	return f.disableErr
}

func (f *fakeController) Throttle(_ context.Context, _ string, _ int64) error {
	f.throttleCalls++
	return f.throttleErr
}

func (f *fakeController) Delete(_ context.Context, _ string) error {
	f.deleteCalls++
	return nil
}

func exceededEval(action limits.ActionKind) limits.Evaluation {
	return limits.Evaluation{
		Kind:      limits.KindData,
		Status:    limits.StatusExceeded,
		Observed:  2000,
		Threshold: 1000,
		Action:    action,
	}
}

func TestEnforceNotifyNeedsNoBackend(t *testing.T) {
	control := &fakeController{}
	d := NewDispatcher(control, Config{}, nil, nil)

	result, err := d.Enforce(context.Background(), "alice", exceededEval(limits.ActionNotify))
	if err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	if !result.Applied {
		t.Error("Expected notify action to be applied")
	}
	if control.disableCalls+control.throttleCalls+control.deleteCalls != 0 {
		t.Error("Expected no backend calls for notify action")
	}
}

func TestEnforceDisableIsIdempotent(t *testing.T) {
	control := &fakeController{}
	d := NewDispatcher(control, Config{}, nil, nil)
	ctx := context.Background()

	result, err := d.Enforce(ctx, "bob", exceededEval(limits.ActionDisable))
	if err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	if !result.Applied {
		t.Error("Expected disable to be applied")
	}

	// A second sweep hitting the same user must not re-disable.
	result, err = d.Enforce(ctx, "bob", exceededEval(limits.ActionDisable))
	if err != nil {
		t.Fatalf("Second Enforce failed: %v", err)
	}
	if !result.Applied {
		t.Error("Expected repeated disable to report applied")
	}
	if control.disableCalls != 1 {
		t.Errorf("Expected 1 backend disable call, got %d", control.disableCalls)
	}

	// After Forget the next sweep acts again.
	d.Forget("bob")
	if _, err := d.Enforce(ctx, "bob", exceededEval(limits.ActionDisable)); err != nil {
		t.Fatalf("Enforce after Forget failed: %v", err)
	}
	if control.disableCalls != 2 {
		t.Errorf("Expected 2 backend disable calls after Forget, got %d", control.disableCalls)
	}
}

func TestEnforceDisableError(t *testing.T) {
	control := &fakeController{disableErr: errors.New("broker down")}
	d := NewDispatcher(control, Config{}, nil, nil)

	result, err := d.Enforce(context.Background(), "bob", exceededEval(limits.ActionDisable))
	if err == nil {
		t.Fatal("Expected error from failing backend")
	}
	if result.Applied {
		t.Error("Expected failed disable not to report applied")
	}

	// The failure must not mark the user as handled.
	control.disableErr = nil
	if _, err := d.Enforce(context.Background(), "bob", exceededEval(limits.ActionDisable)); err != nil {
		t.Fatalf("Retry Enforce failed: %v", err)
	}
	if control.disableCalls != 2 {
		t.Errorf("Expected retry to reach the backend, got %d calls", control.disableCalls)
	}
}

func TestEnforceThrottleDegradesWhenUnsupported(t *testing.T) {
	control := &fakeController{throttleErr: accountcontrol.ErrThrottleUnsupported}
	d := NewDispatcher(control, Config{}, nil, nil)

	result, err := d.Enforce(context.Background(), "carol", exceededEval(limits.ActionThrottle))
	if err != nil {
		t.Fatalf("Expected degraded throttle not to error, got %v", err)
	}
	if !result.Applied || !result.Degraded {
		t.Errorf("Expected applied degraded result, got %+v", result)
	}
}

func TestEnforceThrottleSupported(t *testing.T) {
	control := &fakeController{}
	d := NewDispatcher(control, Config{ThrottleBps: 512 * 1024}, nil, nil)

	result, err := d.Enforce(context.Background(), "carol", exceededEval(limits.ActionThrottle))
	if err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	if !result.Applied || result.Degraded {
		t.Errorf("Expected applied non-degraded result, got %+v", result)
	}
	if control.throttleCalls != 1 {
		t.Errorf("Expected 1 throttle call, got %d", control.throttleCalls)
	}

	// Throttle is not terminal; every sweep reapplies it.
	if _, err := d.Enforce(context.Background(), "carol", exceededEval(limits.ActionThrottle)); err != nil {
		t.Fatalf("Second Enforce failed: %v", err)
	}
	if control.throttleCalls != 2 {
		t.Errorf("Expected throttle to repeat, got %d calls", control.throttleCalls)
	}
}

func TestEnforceDeleteEscalatesOverDisable(t *testing.T) {
	control := &fakeController{}
	d := NewDispatcher(control, Config{}, nil, nil)
	ctx := context.Background()

	if _, err := d.Enforce(ctx, "dave", exceededEval(limits.ActionDisable)); err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	// Delete still runs against a disabled account.
	if _, err := d.Enforce(ctx, "dave", exceededEval(limits.ActionDelete)); err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	if control.deleteCalls != 1 {
		t.Errorf("Expected 1 delete call, got %d", control.deleteCalls)
	}
	// But a second delete does not.
	if _, err := d.Enforce(ctx, "dave", exceededEval(limits.ActionDelete)); err != nil {
		t.Fatalf("Enforce failed: %v", err)
	}
	if control.deleteCalls != 1 {
		t.Errorf("Expected delete to be terminal, got %d calls", control.deleteCalls)
	}
}

func TestEnforceUnknownAction(t *testing.T) {
	d := NewDispatcher(&fakeController{}, Config{}, nil, nil)
	if _, err := d.Enforce(context.Background(), "erin", exceededEval("banish")); err == nil {
		t.Error("Expected error for unknown action")
	}
}
