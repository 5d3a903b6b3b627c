package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyEvent checks the Stripe-Signature header against the raw body using
// the default 300s tolerance. API version mismatches are accepted so older
// endpoints keep working after an account upgrade.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// CheckoutSessionInput describes a single-price subscription checkout.
type CheckoutSessionInput struct {
	CustomerID string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment provider surface the checkout initiator needs.
type Provider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error)
}

// StripeClient is a per-instance Stripe API client.
type StripeClient struct {
	api *client.API
}

// NewStripeClient builds a client for secretKey. backends may be nil.
func NewStripeClient(secretKey string, backends *stripe.Backends) *StripeClient {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeClient{api: sc}
}

func (s *StripeClient) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	if userID != "" {
		params.AddMetadata("user_id", userID)
	}
	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return c.ID, nil
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(in.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	if in.UserID != "" {
		params.ClientReferenceID = stripe.String(in.UserID)
		params.AddMetadata("user_id", in.UserID)
	}
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ProviderMessage extracts the human readable message of a Stripe error.
func ProviderMessage(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		return serr.Msg
	}
	return err.Error()
}
