package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/jobqueue"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
)

// ReminderItem is one line of a renewal reminder.
type ReminderItem struct {
	Name   string
	Amount string
	Due    string
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
}

// Outbox renders messages and hands them to the job queue.
type Outbox struct {
	queue    jobqueue.Enqueuer
	renderer *Renderer
}

func NewOutbox(queue jobqueue.Enqueuer, renderer *Renderer) *Outbox {
	return &Outbox{queue: queue, renderer: renderer}
}

func (o *Outbox) Welcome(ctx context.Context, to, name string) error {
	subject := "Welcome to CashDuezy"
	body, err := o.renderer.Render(KindWelcome, subject, map[string]interface{}{"Name": name})
	if err != nil {
		return err
	}
	return o.enqueue(ctx, jobqueue.SendEmailJobPayload{Kind: KindWelcome, To: to, Subject: subject, HTML: body})
}

func (o *Outbox) Reminder(ctx context.Context, to, name string, items []ReminderItem) error {
	if len(items) == 0 {
		return nil
	}
	subject := fmt.Sprintf("%d payment(s) due soon", len(items))
	if len(items) == 1 {
		subject = fmt.Sprintf("%s renews on %s", items[0].Name, items[0].Due)
	}
	body, err := o.renderer.Render(KindReminder, subject, map[string]interface{}{"Name": name, "Items": items})
	if err != nil {
		return err
	}
	return o.enqueue(ctx, jobqueue.SendEmailJobPayload{Kind: KindReminder, To: to, Subject: subject, HTML: body})
}

func (o *Outbox) Contact(ctx context.Context, to string, m ContactMessage) error {
	subject := "Contact form: " + strings.TrimSpace(m.Name)
	body, err := o.renderer.Render(KindContact, subject, map[string]interface{}{
		"Name":    m.Name,
		"Email":   m.Email,
		"Message": m.Message,
	})
	if err != nil {
		return err
	}
	return o.enqueue(ctx, jobqueue.SendEmailJobPayload{Kind: KindContact, To: to, Subject: subject, HTML: body, ReplyTo: m.Email})
}

func (o *Outbox) enqueue(ctx context.Context, p jobqueue.SendEmailJobPayload) error {
	if _, err := o.queue.EnqueueJob(ctx, jobqueue.JobTypeSendEmail, p.ToMap()); err != nil {
		return fmt.Errorf("enqueue %s email: %w", p.Kind, err)
	}
	return nil
}

// SendEmailHandler delivers send_email jobs. Errors make the queue retry.
func SendEmailHandler(m Mailer, mx *metrics.Metrics) jobqueue.Handler {
	return func(ctx context.Context, job *jobqueue.Job) error {
		p, err := jobqueue.SendEmailJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		err = m.Send(ctx, Message{To: p.To, Subject: p.Subject, HTML: p.HTML, Text: p.Text, ReplyTo: p.ReplyTo})
		if err != nil {
			mx.ObserveEmail(p.Kind, "failed")
			log.Warnf("[Mail] %s email to %s failed (attempt %d): %v", p.Kind, p.To, job.RetryCount+1, err)
			return err
		}
		mx.ObserveEmail(p.Kind, "sent")
		return nil
	}
}
