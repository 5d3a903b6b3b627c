package billing

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func stripeEvent(id, typ, object string) stripe.Event {
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func TestDecodeCheckoutCompleted(t *testing.T) {
	tests := []struct {
		name   string
		object string
		want   CheckoutCompleted
	}{
		{
			name:   "metadata user id wins",
			object: `{"id":"cs_1","customer":"cus_1","client_reference_id":"ref","metadata":{"user_id":"u1"}}`,
			want:   CheckoutCompleted{EventID: "evt_1", UserID: "u1", CustomerID: "cus_1"},
		},
		{
			name:   "client reference fallback",
			object: `{"id":"cs_1","customer":"cus_1","client_reference_id":"u2","metadata":{}}`,
			want:   CheckoutCompleted{EventID: "evt_1", UserID: "u2", CustomerID: "cus_1"},
		},
		{
			name:   "expanded customer",
			object: `{"id":"cs_1","customer":{"id":"cus_9","object":"customer"},"client_reference_id":"u3"}`,
			want:   CheckoutCompleted{EventID: "evt_1", UserID: "u3", CustomerID: "cus_9"},
		},
		{
			name:   "nothing to link",
			object: `{"id":"cs_1","customer":null}`,
			want:   CheckoutCompleted{EventID: "evt_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent(stripeEvent("evt_1", EventCheckoutCompleted, tt.object))
			require.NoError(t, err)
			assert.Equal(t, KindCheckoutCompleted, ev.Kind())
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodeSubscriptionPeriodEnd(t *testing.T) {
	top := `{"id":"sub_1","customer":"cus_1","status":"active","current_period_end":1700000000}`
	ev, err := DecodeEvent(stripeEvent("evt_2", EventSubscriptionUpdated, top))
	require.NoError(t, err)

	sc, ok := ev.(SubscriptionChanged)
	require.True(t, ok)
	assert.Equal(t, KindSubscriptionUpdated, sc.Kind())
	assert.Equal(t, "active", sc.Status)
	require.NotNil(t, sc.CurrentPeriodEnd)
	assert.True(t, sc.CurrentPeriodEnd.Equal(time.Unix(1700000000, 0)))

	items := `{"id":"sub_1","customer":"cus_1","status":"trialing","items":{"data":[{"current_period_end":1800000000}]}}`
	ev, err = DecodeEvent(stripeEvent("evt_3", EventSubscriptionCreated, items))
	require.NoError(t, err)
	sc = ev.(SubscriptionChanged)
	assert.Equal(t, KindSubscriptionCreated, sc.Kind())
	require.NotNil(t, sc.CurrentPeriodEnd)
	assert.Equal(t, int64(1800000000), sc.CurrentPeriodEnd.Unix())

	none := `{"id":"sub_1","customer":"cus_1","status":"incomplete"}`
	ev, err = DecodeEvent(stripeEvent("evt_4", EventSubscriptionUpdated, none))
	require.NoError(t, err)
	assert.Nil(t, ev.(SubscriptionChanged).CurrentPeriodEnd)
}

func TestDecodeSubscriptionDeletedAndUnknown(t *testing.T) {
	ev, err := DecodeEvent(stripeEvent("evt_5", EventSubscriptionDeleted, `{"customer":"cus_2"}`))
	require.NoError(t, err)
	assert.Equal(t, SubscriptionDeleted{EventID: "evt_5", CustomerID: "cus_2"}, ev)

	ev, err = DecodeEvent(stripeEvent("evt_6", "invoice.paid", `{"id":"in_1"}`))
	require.NoError(t, err)
	assert.Equal(t, Unrecognized{EventID: "evt_6", Type: "invoice.paid"}, ev)
	assert.Equal(t, "evt_6", ev.ID())
}

func TestDecodeMalformedKnownType(t *testing.T) {
	for _, typ := range []string{EventCheckoutCompleted, EventSubscriptionUpdated, EventSubscriptionDeleted} {
		_, err := DecodeEvent(stripeEvent("evt_bad", typ, `{"customer":42}`))
		require.Error(t, err, typ)
		assert.True(t, errors.Is(err, ErrMalformedEvent), typ)
	}

	_, err := DecodeEvent(stripe.Event{ID: "evt_nil", Type: EventSubscriptionDeleted})
	assert.ErrorIs(t, err, ErrMalformedEvent)

	// unknown types are never inspected
	_, err = DecodeEvent(stripeEvent("evt_x", "charge.refunded", `not json`))
	assert.NoError(t, err)
}
