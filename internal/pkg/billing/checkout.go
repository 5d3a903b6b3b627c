package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// CheckoutRequest is the body of POST /api/checkout. Every field is optional.
type CheckoutRequest struct {
	CustomerID string `json:"customer_id"`
	UserID     string `json:"user_id"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// Checkout creates hosted checkout sessions for the single paid price.
type Checkout struct {
	cfg      Config
	provider Provider
	repo     Repository
	// async runs the detached customer backfill.
	async func(func())
	// backfillTimeout bounds the detached profile write.
	backfillTimeout time.Duration
}

func NewCheckout(cfg Config, provider Provider, repo Repository) *Checkout {
	return &Checkout{
		cfg:             cfg,
		provider:        provider,
		repo:            repo,
		async:           func(fn func()) { go fn() },
		backfillTimeout: 10 * time.Second,
	}
}

// CreateSession resolves a customer and returns the hosted checkout URL.
// ErrNotConfigured and ErrNoCustomer are returned before any provider call
// that could be avoided; provider errors are wrapped.
func (c *Checkout) CreateSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if !c.cfg.CheckoutReady() || c.provider == nil {
		return "", ErrNotConfigured
	}

	userID := strings.TrimSpace(req.UserID)
	customerID := strings.TrimSpace(req.CustomerID)
	email := strings.TrimSpace(req.Email)
	created := false

	if customerID == "" && userID != "" && c.repo != nil {
		stored, err := c.repo.CustomerIDForUser(ctx, userID)
		if err != nil {
			// lookup failure degrades to creating a customer
			log.Warnf("[Checkout] customer lookup for user %s failed: %v", userID, err)
		}
		customerID = stored
	}

	if customerID == "" && email != "" {
		id, err := c.provider.CreateCustomer(ctx, email, userID)
		if err != nil {
			return "", err
		}
		customerID = id
		created = true
	}

	if customerID == "" {
		return "", ErrNoCustomer
	}

	url, err := c.provider.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customerID,
		UserID:     userID,
		PriceID:    c.cfg.PriceID,
		SuccessURL: c.cfg.SuccessURL(),
		CancelURL:  c.cfg.CancelURL(),
	})
	if err != nil {
		return "", err
	}

	if created && userID != "" && c.repo != nil {
		c.backfillCustomer(userID, customerID)
	}
	return url, nil
}

// backfillCustomer stores a newly created customer id on the profile. It runs
// detached from the request and only logs failures.
func (c *Checkout) backfillCustomer(userID, customerID string) {
	c.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.backfillTimeout)
		defer cancel()
		id := customerID
		if err := c.repo.UpdateProfileByUserID(ctx, userID, ProfileUpdate{BillingCustomerID: &id}); err != nil {
			log.Errorf("[Checkout] %v", fmt.Errorf("backfill customer %s for user %s: %w", customerID, userID, err))
		}
	})
}
