package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"
)

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.SMTPHost == "" {
		return fmt.Errorf("%w: SMTP_HOST missing", ErrNotConfigured)
	}
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sender := m.cfg.From
	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("[Mail] MAIL_FROM not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" && m.cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	if err := m.send(addr, auth, sender, []string{msg.To}, buildMIME(sender, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	log.Infof("[Mail] sent %q to %s via %s", msg.Subject, msg.To, addr)
	return nil
}

func buildMIME(sender string, msg Message) []byte {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, msg.To, msg.Subject)
	if msg.ReplyTo != "" {
		headers += fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo)
	}
	body, contentType := msg.HTML, "text/html"
	if body == "" {
		body, contentType = msg.Text, "text/plain"
	}
	return []byte(headers +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: " + contentType + "; charset=UTF-8\r\n\r\n" +
		body)
}
