package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveWebhook("customer.subscription.updated", OutcomeApplied)
	m.ObserveWebhook("customer.subscription.updated", OutcomeApplied)
	m.ObserveWebhook("invoice.paid", OutcomeIgnored)
	m.ObserveCheckout("ok")
	m.ObserveReminder()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("customer.subscription.updated", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("invoice.paid", OutcomeIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersEnqueued))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cashduezy_billing_webhook_events_total")
	assert.Contains(t, names, "cashduezy_billing_checkout_sessions_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveWebhook("x", OutcomeApplied)
		m.ObserveCheckout("ok")
		m.ObserveSessionBridge("SIGNED_IN")
		m.ObserveEmail("welcome", "sent")
		m.ObserveReminder()
	})
}
