package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"halcyon-net/warden/pkg/limits"
)

type fakeChannel struct {
	channelType limits.ChannelType
	err         error
	sent        []string
}

func (f *fakeChannel) Type() limits.ChannelType { return f.channelType }

func (f *fakeChannel) Send(_ context.Context, recipient string, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient+": "+message)
	return nil
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	email := &fakeChannel{channelType: limits.ChannelEmail, err: errors.New("smtp down")}
	webhook := &fakeChannel{channelType: limits.ChannelWebhook}
	d := NewDispatcher(nil, nil, email, webhook)

	subs := []limits.NotificationSubscription{
		{Channel: limits.ChannelEmail, Recipient: "a@example.com", Enabled: true},
		{Channel: limits.ChannelWebhook, Recipient: "https://example.com/hook", Enabled: true},
		{Channel: limits.ChannelTelegram, Recipient: "12345", Enabled: true},
		{Channel: limits.ChannelWebhook, Recipient: "https://example.com/off", Enabled: false},
	}

	outcomes := d.Dispatch(context.Background(), subs, "test message")
	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}

	byChannel := make(map[limits.ChannelType]Outcome)
	for _, o := range outcomes {
		byChannel[o.Channel] = o
	}
	if byChannel[limits.ChannelEmail].Err == nil {
		t.Error("Expected email outcome to carry the channel error")
	}
	if byChannel[limits.ChannelWebhook].Err != nil {
		t.Errorf("Expected webhook to succeed, got %v", byChannel[limits.ChannelWebhook].Err)
	}
	if byChannel[limits.ChannelTelegram].Err == nil {
		t.Error("Expected unconfigured telegram channel to yield an error outcome")
	}

	if !Delivered(outcomes) {
		t.Error("Expected Delivered to be true with one successful outcome")
	}
	if len(webhook.sent) != 1 {
		t.Errorf("Expected 1 webhook send, got %d", len(webhook.sent))
	}
}

func TestDeliveredAllFailed(t *testing.T) {
	outcomes := []Outcome{
		{Channel: limits.ChannelEmail, Err: errors.New("x")},
		{Channel: limits.ChannelWebhook, Err: errors.New("y")},
	}
	if Delivered(outcomes) {
		t.Error("Expected Delivered to be false when every outcome failed")
	}
	if Delivered(nil) {
		t.Error("Expected Delivered to be false for no outcomes")
	}
}

func TestMessages(t *testing.T) {
	warning := WarningMessage("alice", limits.Evaluation{
		Kind: limits.KindData, Percentage: 83.8,
	})
	if warning != "user alice has used 83.8% of data_limit limit" {
		t.Errorf("Unexpected warning message: %q", warning)
	}

	violation := ViolationMessage("alice", limits.Evaluation{
		Kind: limits.KindData, Action: limits.ActionDisable,
	})
	if violation != "user alice exceeded data_limit limit, action taken: disable" {
		t.Errorf("Unexpected violation message: %q", violation)
	}
}

func TestWebhookChannelSend(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(WebhookConfig{Timeout: 5 * time.Second})
	if err := ch.Send(context.Background(), server.URL, "limit exceeded"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got.Message != "limit exceeded" {
		t.Errorf("Expected message %q, got %q", "limit exceeded", got.Message)
	}
	if got.Source != "warden-limits" {
		t.Errorf("Expected source warden-limits, got %q", got.Source)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", got.Timestamp)
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ch := NewWebhookChannel(WebhookConfig{Timeout: 5 * time.Second})
	if err := ch.Send(context.Background(), server.URL, "x"); err == nil {
		t.Error("Expected error for non-2xx response")
	}
	// Delivery is at most once per sweep; the next sweep is the retry.
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected a single delivery attempt, got %d", n)
	}
}

func TestEmailChannelBuildsMessage(t *testing.T) {
	ch, err := NewEmailChannel(EmailConfig{
		Host: "smtp.example.com",
		From: "warden@example.com",
	})
	if err != nil {
		t.Fatalf("NewEmailChannel failed: %v", err)
	}

	var gotTo []string
	var gotMsg string
	ch.send = func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	if err := ch.Send(context.Background(), "user@example.com", "limit warning"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("Unexpected recipients: %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Limit alert") {
		t.Errorf("Expected subject header in message, got %q", gotMsg)
	}
	if !strings.Contains(gotMsg, "limit warning") {
		t.Errorf("Expected body in message, got %q", gotMsg)
	}
}

func TestEmailChannelSendTimeout(t *testing.T) {
	ch, err := NewEmailChannel(EmailConfig{
		Host:    "smtp.example.com",
		From:    "warden@example.com",
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewEmailChannel failed: %v", err)
	}

	release := make(chan struct{})
	defer close(release)
	ch.send = func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- ch.Send(context.Background(), "user@example.com", "x")
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Send to return once its timeout expired")
	}
}

func TestEmailChannelValidation(t *testing.T) {
	if _, err := NewEmailChannel(EmailConfig{From: "x@example.com"}); err == nil {
		t.Error("Expected error for missing host")
	}
	if _, err := NewEmailChannel(EmailConfig{Host: "smtp.example.com"}); err == nil {
		t.Error("Expected error for missing from address")
	}
}

func TestTelegramChannelValidation(t *testing.T) {
	if _, err := NewTelegramChannel(TelegramConfig{}); err == nil {
		t.Error("Expected error for missing bot token")
	}
}
