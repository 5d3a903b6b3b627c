package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// MailgunMailer talks to the Mailgun messages API.
type MailgunMailer struct {
	cfg    Config
	client *http.Client
}

func NewMailgunMailer(cfg Config) *MailgunMailer {
	return &MailgunMailer{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.MailgunAPIKey == "" || m.cfg.MailgunDomain == "" {
		return fmt.Errorf("%w: MAILGUN_API_KEY or MAILGUN_DOMAIN missing", ErrNotConfigured)
	}
	if err := validate(msg); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = "CashDuezy <no-reply@" + m.cfg.MailgunDomain + ">"
	}
	form := url.Values{
		"from":    {from},
		"to":      {msg.To},
		"subject": {msg.Subject},
	}
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}
	if msg.Text != "" {
		form.Set("text", msg.Text)
	}
	if msg.ReplyTo != "" {
		form.Set("h:Reply-To", msg.ReplyTo)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", strings.TrimRight(m.cfg.MailgunAPIBase, "/"), m.cfg.MailgunDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth("api", m.cfg.MailgunAPIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mailgun: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	log.Infof("[Mail] mailgun accepted %q for %s (%s)", msg.Subject, msg.To, out.ID)
	return nil
}
