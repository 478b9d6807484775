package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"halcyon-net/warden/pkg/limits"
)

// EmailChannel delivers messages over SMTP. The recipient is an email
// address.
type EmailChannel struct {
	addr    string
	from    string
	subject string
	auth    smtp.Auth
	timeout time.Duration

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// EmailConfig configures the email channel.
type EmailConfig struct {
	// Host and Port locate the SMTP server.
	Host string
	Port int

	// Username and Password authenticate with PLAIN auth when set.
	Username string
	Password string

	// From is the sender address.
	From string

	// Subject is the subject line. Default: "Limit alert".
	Subject string

	// Timeout bounds each delivery attempt. Default: 10 seconds.
	Timeout time.Duration
}

// NewEmailChannel creates an email channel.
func NewEmailChannel(cfg EmailConfig) (*EmailChannel, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host cannot be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address cannot be empty")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Limit alert"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &EmailChannel{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:    cfg.From,
		subject: cfg.Subject,
		auth:    auth,
		timeout: cfg.Timeout,
		send:    smtp.SendMail,
	}, nil
}

func (e *EmailChannel) Type() limits.ChannelType {
	return limits.ChannelEmail
}

func (e *EmailChannel) Send(ctx context.Context, recipient string, message string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", e.subject)
	msg.WriteString("\r\n")
	msg.WriteString(message)
	msg.WriteString("\r\n")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// smtp.SendMail carries no deadline of its own; run it aside and
	// abandon the session when the context expires.
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.send(e.addr, e.auth, e.from, []string{recipient}, []byte(msg.String()))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sending email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending email: %w", ctx.Err())
	}
}
