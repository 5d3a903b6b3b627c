package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func TestVerifyEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.deleted","api_version":"2020-08-27","data":{"object":{"customer":"cus_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})

	ev, err := VerifyEvent(payload, signed.Header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, stripe.EventType(EventSubscriptionDeleted), ev.Type)

	decoded, err := DecodeEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionDeleted{EventID: "evt_1", CustomerID: "cus_1"}, decoded)
}

func TestVerifyEventRejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`)

	_, err := VerifyEvent(payload, "t=1,v1=deadbeef", testWebhookSecret)
	assert.Error(t, err)

	wrong := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	_, err = VerifyEvent(payload, wrong.Header, testWebhookSecret)
	assert.Error(t, err)

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})
	_, err = VerifyEvent(payload, stale.Header, testWebhookSecret)
	assert.Error(t, err)
}
