package mail

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// LogMailer prints messages instead of sending them. Used in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	log.Infof("[Mail] (log driver) to=%s subject=%q bytes=%d", msg.To, msg.Subject, len(msg.HTML)+len(msg.Text))
	return nil
}
