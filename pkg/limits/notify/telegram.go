package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"halcyon-net/warden/pkg/limits"
)

// TelegramChannel delivers messages through the Telegram Bot API. The
// recipient is a chat ID.
type TelegramChannel struct {
	client *resty.Client
	token  string
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	// BotToken is the Telegram bot token.
	BotToken string

	// Timeout bounds each delivery attempt. Default: 10 seconds.
	Timeout time.Duration
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg TelegramConfig) (*TelegramChannel, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetBaseURL("https://api.telegram.org")

	return &TelegramChannel{client: client, token: cfg.BotToken}, nil
}

func (t *TelegramChannel) Type() limits.ChannelType {
	return limits.ChannelTelegram
}

func (t *TelegramChannel) Send(ctx context.Context, recipient string, message string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": recipient,
			"text":    message,
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	if resp.StatusCode() != 200 || !result.OK {
		return fmt.Errorf("telegram API error: status %d, %s", resp.StatusCode(), result.Description)
	}
	return nil
}
