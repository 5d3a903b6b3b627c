package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Stripe event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Kind names a decoded event variant.
type Kind string

const (
	KindCheckoutCompleted   Kind = "checkout_completed"
	KindSubscriptionCreated Kind = "subscription_created"
	KindSubscriptionUpdated Kind = "subscription_updated"
	KindSubscriptionDeleted Kind = "subscription_deleted"
	KindUnrecognized        Kind = "unrecognized"
)

// Event is the closed set of billing events. The unexported method keeps
// other packages from adding variants.
type Event interface {
	Kind() Kind
	ID() string
	sealed()
}

// CheckoutCompleted is a finished checkout session. UserID comes from
// metadata.user_id, falling back to client_reference_id.
type CheckoutCompleted struct {
	EventID    string
	UserID     string
	CustomerID string
}

// SubscriptionChanged covers both created and updated subscriptions.
type SubscriptionChanged struct {
	EventID          string
	Created          bool
	CustomerID       string
	Status           string
	CurrentPeriodEnd *time.Time
}

type SubscriptionDeleted struct {
	EventID    string
	CustomerID string
}

// Unrecognized is any event type the reconciler does not handle.
type Unrecognized struct {
	EventID string
	Type    string
}

func (CheckoutCompleted) Kind() Kind { return KindCheckoutCompleted }
func (e SubscriptionChanged) Kind() Kind {
	if e.Created {
		return KindSubscriptionCreated
	}
	return KindSubscriptionUpdated
}
func (SubscriptionDeleted) Kind() Kind { return KindSubscriptionDeleted }
func (Unrecognized) Kind() Kind        { return KindUnrecognized }

func (e CheckoutCompleted) ID() string   { return e.EventID }
func (e SubscriptionChanged) ID() string { return e.EventID }
func (e SubscriptionDeleted) ID() string { return e.EventID }
func (e Unrecognized) ID() string        { return e.EventID }

func (CheckoutCompleted) sealed()   {}
func (SubscriptionChanged) sealed() {}
func (SubscriptionDeleted) sealed() {}
func (Unrecognized) sealed()        {}

// expandableID accepts either a bare id or an expanded object carrying one.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type checkoutSessionObject struct {
	ID                string            `json:"id"`
	Customer          expandableID      `json:"customer"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type subscriptionObject struct {
	ID               string       `json:"id"`
	Customer         expandableID `json:"customer"`
	Status           string       `json:"status"`
	CurrentPeriodEnd int64        `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd prefers the top-level field and falls back to the first item,
// where newer API versions moved it.
func (s subscriptionObject) periodEnd() *time.Time {
	ts := s.CurrentPeriodEnd
	if ts == 0 && len(s.Items.Data) > 0 {
		ts = s.Items.Data[0].CurrentPeriodEnd
	}
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// DecodeEvent maps a verified Stripe event onto a variant. A recognised type
// whose object cannot be decoded yields an error wrapping ErrMalformedEvent.
func DecodeEvent(ev stripe.Event) (Event, error) {
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}

	switch string(ev.Type) {
	case EventCheckoutCompleted:
		var obj checkoutSessionObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Type, err)
		}
		userID := obj.Metadata["user_id"]
		if userID == "" {
			userID = obj.ClientReferenceID
		}
		return CheckoutCompleted{EventID: ev.ID, UserID: userID, CustomerID: string(obj.Customer)}, nil

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var obj subscriptionObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Type, err)
		}
		return SubscriptionChanged{
			EventID:          ev.ID,
			Created:          string(ev.Type) == EventSubscriptionCreated,
			CustomerID:       string(obj.Customer),
			Status:           obj.Status,
			CurrentPeriodEnd: obj.periodEnd(),
		}, nil

	case EventSubscriptionDeleted:
		var obj subscriptionObject
		if err := decodeObject(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Type, err)
		}
		return SubscriptionDeleted{EventID: ev.ID, CustomerID: string(obj.Customer)}, nil

	default:
		return Unrecognized{EventID: ev.ID, Type: string(ev.Type)}, nil
	}
}

func decodeObject(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty data.object")
	}
	return json.Unmarshal(raw, out)
}
