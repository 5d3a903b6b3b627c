package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/billing"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

// CheckoutController starts hosted checkout sessions for the paid plan.
type CheckoutController struct {
	checkout *billing.Checkout
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewCheckoutController(checkout *billing.Checkout, mx *metrics.Metrics) *CheckoutController {
	return &CheckoutController{checkout: checkout, metrics: mx, validate: validator.New()}
}

// HandleCheckout answers POST /api/checkout with {url} or {error}.
func (cc *CheckoutController) HandleCheckout(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			cc.metrics.ObserveCheckout("bad_request")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}
	if err := cc.validate.Struct(req); err != nil {
		cc.metrics.ObserveCheckout("bad_request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email address"})
	}

	// the signed-in user fills what the body left out
	if uc := usercontext.GetUserContext(c); uc.IsLoggedIn {
		if req.UserID == "" {
			req.UserID = uc.UserID
		}
		if req.Email == "" {
			req.Email = uc.Email
		}
	}

	url, err := cc.checkout.CreateSession(c.UserContext(), req)
	switch {
	case err == nil:
		cc.metrics.ObserveCheckout("created")
		return c.JSON(fiber.Map{"url": url})
	case errors.Is(err, billing.ErrNotConfigured):
		log.Error("[Checkout] STRIPE_SECRET_KEY or STRIPE_PRICE_ID is not set")
		cc.metrics.ObserveCheckout("not_configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Stripe is not configured"})
	case errors.Is(err, billing.ErrNoCustomer):
		cc.metrics.ObserveCheckout("no_customer")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "customer_id, user_id or email is required"})
	default:
		log.Errorf("[Checkout] provider error: %v", err)
		cc.metrics.ObserveCheckout("provider_error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": billing.ProviderMessage(err)})
	}
}
