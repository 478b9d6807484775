package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"halcyon-net/warden/pkg/limits"
)

// webhookPayload is the JSON body posted to webhook recipients.
type webhookPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// WebhookChannel delivers messages as JSON POSTs. The recipient is the
// target URL.
type WebhookChannel struct {
	client *resty.Client
}

// WebhookConfig configures the webhook channel.
type WebhookConfig struct {
	// Timeout bounds each delivery attempt. Default: 10 seconds.
	Timeout time.Duration
}

// NewWebhookChannel creates a webhook channel. Delivery is single-attempt:
// a failed POST is reported as a failed outcome and tried again on the
// next sweep, never retried within one.
func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")

	return &WebhookChannel{client: client}
}

func (w *WebhookChannel) Type() limits.ChannelType {
	return limits.ChannelWebhook
}

func (w *WebhookChannel) Send(ctx context.Context, recipient string, message string) error {
	payload := webhookPayload{
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    "warden-limits",
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(recipient)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
