package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/billing"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
)

// WebhookController receives billing provider webhooks. Requests are
// authenticated by signature only, so the routes sit outside CSRF and auth.
type WebhookController struct {
	service *billing.Service
	secret  string
	metrics *metrics.Metrics
}

func NewWebhookController(service *billing.Service, cfg billing.Config, mx *metrics.Metrics) *WebhookController {
	return &WebhookController{service: service, secret: cfg.WebhookSecret, metrics: mx}
}

// HandleStripeWebhook verifies, decodes and applies one delivery.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	if wc.secret == "" {
		log.Error("[Billing] STRIPE_WEBHOOK_SECRET is not set")
		wc.metrics.ObserveWebhook("unknown", metrics.OutcomeInvalid)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook secret not configured"})
	}

	sig := strings.TrimSpace(c.Get("Stripe-Signature"))
	if sig == "" {
		wc.metrics.ObserveWebhook("unknown", metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing Stripe-Signature header"})
	}

	// c.Body() is reused by fasthttp after the handler returns
	payload := append([]byte(nil), c.Body()...)
	event, err := billing.VerifyEvent(payload, sig, wc.secret)
	if err != nil {
		log.Warnf("[Billing] webhook signature verification failed: %v", err)
		wc.metrics.ObserveWebhook("unknown", metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	eventType := string(event.Type)
	outcome, err := wc.service.HandleEvent(c.UserContext(), event, payload)
	if err != nil {
		if errors.Is(err, billing.ErrMalformedEvent) {
			log.Warnf("[Billing] event %s (%s) rejected: %v", event.ID, eventType, err)
			wc.metrics.ObserveWebhook(eventType, metrics.OutcomeInvalid)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed event payload"})
		}
		log.Errorf("[Billing] event %s (%s) failed: %v", event.ID, eventType, err)
		wc.metrics.ObserveWebhook(eventType, metrics.OutcomeStoreFailed)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to apply event"})
	}

	wc.metrics.ObserveWebhook(eventType, string(outcome))
	if outcome == billing.OutcomeDuplicate {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}
	return c.JSON(fiber.Map{"received": true})
}
