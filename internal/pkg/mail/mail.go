package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

// ErrNotConfigured is returned when the selected driver lacks credentials.
var ErrNotConfigured = errors.New("mail: driver not configured")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Driver string
	From   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	MailgunAPIKey  string
	MailgunDomain  string
	MailgunAPIBase string
	Timeout        time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Driver:         strings.ToLower(env.GetEnv("MAIL_DRIVER", "log")),
		From:           env.GetEnv("MAIL_FROM", env.GetEnv("SMTP_SENDER", "")),
		SMTPHost:       env.GetEnv("SMTP_HOST", ""),
		SMTPPort:       env.GetEnv("SMTP_PORT", "587"),
		SMTPUsername:   env.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword:   env.GetEnv("SMTP_PASSWORD", ""),
		MailgunAPIKey:  env.GetEnv("MAILGUN_API_KEY", ""),
		MailgunDomain:  env.GetEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIBase: env.GetEnv("MAILGUN_API_BASE", "https://api.mailgun.net"),
		Timeout:        env.GetDuration("MAIL_TIMEOUT", 15*time.Second),
	}
}

// New returns the mailer for cfg.Driver. Missing credentials are reported
// per send, so a misconfigured driver fails the job rather than startup.
func New(cfg Config) (Mailer, error) {
	switch cfg.Driver {
	case "mailgun":
		return NewMailgunMailer(cfg), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "log", "":
		return LogMailer{}, nil
	default:
		return nil, fmt.Errorf("mail: unknown driver %q", cfg.Driver)
	}
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: recipient is empty")
	}
	if msg.HTML == "" && msg.Text == "" {
		return errors.New("mail: body is empty")
	}
	return nil
}
