// Package notify delivers warning and violation messages over email,
// Telegram, and webhooks. Channels are independent: a failing channel
// never blocks delivery on the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"halcyon-net/warden/pkg/limits"
)

// Channel delivers one message to one recipient.
type Channel interface {
	// Type identifies the channel in subscriptions and metrics.
	Type() limits.ChannelType

	// Send delivers the message. The recipient format is channel-specific:
	// an email address, a Telegram chat ID, or a webhook URL.
	Send(ctx context.Context, recipient string, message string) error
}

// Outcome is the per-recipient result of a dispatch.
type Outcome struct {
	Channel   limits.ChannelType
	Recipient string
	Err       error
}

// Dispatcher fans a message out to the channels named by a set of
// subscriptions.
type Dispatcher struct {
	channels map[limits.ChannelType]Channel
	logger   *slog.Logger
	metrics  *limits.Metrics
}

// NewDispatcher creates a dispatcher over the given channels. A nil channel
// is skipped, so callers can pass only the channels they configured.
func NewDispatcher(logger *slog.Logger, metrics *limits.Metrics, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	byType := make(map[limits.ChannelType]Channel, len(channels))
	for _, ch := range channels {
		if ch != nil {
			byType[ch.Type()] = ch
		}
	}
	return &Dispatcher{
		channels: byType,
		logger:   logger.With("component", "notify"),
		metrics:  metrics,
	}
}

// Supports reports whether a channel of the given type is configured.
func (d *Dispatcher) Supports(t limits.ChannelType) bool {
	_, ok := d.channels[t]
	return ok
}

// Dispatch sends the message to every enabled subscription. It returns one
// outcome per subscription attempted; a subscription whose channel is not
// configured yields an error outcome but does not stop the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, subs []limits.NotificationSubscription, message string) []Outcome {
	outcomes := make([]Outcome, 0, len(subs))
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}

		outcome := Outcome{Channel: sub.Channel, Recipient: sub.Recipient}
		ch, ok := d.channels[sub.Channel]
		if !ok {
			outcome.Err = fmt.Errorf("channel %s not configured", sub.Channel)
		} else {
			outcome.Err = ch.Send(ctx, sub.Recipient, message)
		}

		d.metrics.RecordNotification(sub.Channel, outcome.Err)
		if outcome.Err != nil {
			d.logger.Error("Notification delivery failed",
				"channel", sub.Channel, "recipient", sub.Recipient, "error", outcome.Err)
		} else {
			d.logger.Debug("Notification delivered",
				"channel", sub.Channel, "recipient", sub.Recipient)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Delivered reports whether at least one outcome succeeded.
func Delivered(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err == nil {
			return true
		}
	}
	return false
}

// WarningMessage formats the message sent when usage crosses the warning
// threshold without exceeding the limit.
func WarningMessage(username string, ev limits.Evaluation) string {
	return fmt.Sprintf("user %s has used %.1f%% of %s limit", username, ev.Percentage, ev.Kind)
}

// ViolationMessage formats the message sent when a limit is exceeded.
func ViolationMessage(username string, ev limits.Evaluation) string {
	return fmt.Sprintf("user %s exceeded %s limit, action taken: %s", username, ev.Kind, ev.Action)
}
