package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

var (
	// ErrNotConfigured is returned when a Stripe secret or price id is missing.
	ErrNotConfigured = errors.New("billing: stripe is not configured")
	// ErrNoCustomer means no customer id could be resolved or created.
	ErrNoCustomer = errors.New("billing: no customer could be resolved")
	// ErrMalformedEvent wraps decoding failures of a recognised event type.
	ErrMalformedEvent = errors.New("billing: malformed event payload")
)

// Config carries the Stripe settings. Fields are checked per operation so a
// missing webhook secret does not break checkout and vice versa.
type Config struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	PublicDomain  string
	Ledger        bool
}

func ConfigFromEnv() Config {
	return Config{
		SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		PriceID:       env.GetEnv("STRIPE_PRICE_ID", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PublicDomain:  strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/"),
		Ledger:        env.GetBool("BILLING_WEBHOOK_LEDGER", false),
	}
}

// CheckoutReady reports whether checkout sessions can be created.
func (c Config) CheckoutReady() bool {
	return c.SecretKey != "" && c.PriceID != ""
}

func (c Config) SuccessURL() string {
	return c.PublicDomain + "/dashboard?checkout=success"
}

func (c Config) CancelURL() string {
	return c.PublicDomain + "/pricing?checkout=canceled"
}

// ProfileUpdate lists the profile fields a billing transition writes. Nil
// fields are left untouched.
type ProfileUpdate struct {
	BillingCustomerID  *string
	Plan               *string
	SubscriptionStatus *string
	CurrentPeriodEnd   *time.Time
	// ClearPeriodEnd writes NULL when CurrentPeriodEnd is nil.
	ClearPeriodEnd bool
}

// Empty reports whether the update would write nothing.
func (u ProfileUpdate) Empty() bool {
	return u.BillingCustomerID == nil && u.Plan == nil && u.SubscriptionStatus == nil && u.CurrentPeriodEnd == nil && !u.ClearPeriodEnd
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
	SignatureValid  bool
}
