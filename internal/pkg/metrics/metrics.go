// Package metrics holds the business counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for webhook deliveries.
const (
	OutcomeApplied     = "applied"
	OutcomeIgnored     = "ignored"
	OutcomeDuplicate   = "duplicate"
	OutcomeInvalid     = "invalid"
	OutcomeStoreFailed = "store_failed"
)

type Metrics struct {
	WebhookEvents     *prometheus.CounterVec
	CheckoutSessions  *prometheus.CounterVec
	SessionBridge     *prometheus.CounterVec
	EmailsSent        *prometheus.CounterVec
	RemindersEnqueued prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashduezy",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Stripe webhook deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashduezy",
			Subsystem: "billing",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session attempts by result.",
		}, []string{"result"}),
		SessionBridge: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashduezy",
			Subsystem: "auth",
			Name:      "session_bridge_total",
			Help:      "Session bridge calls by auth event.",
		}, []string{"event"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashduezy",
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Transactional emails by kind and result.",
		}, []string{"kind", "result"}),
		RemindersEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cashduezy",
			Subsystem: "reminder",
			Name:      "enqueued_total",
			Help:      "Renewal reminder emails enqueued.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.WebhookEvents, m.CheckoutSessions, m.SessionBridge, m.EmailsSent, m.RemindersEnqueued)
	}
	return m
}

// ObserveWebhook is safe on a nil receiver.
func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveCheckout(result string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSessionBridge(event string) {
	if m == nil {
		return
	}
	m.SessionBridge.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveEmail(kind, result string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveReminder() {
	if m == nil {
		return
	}
	m.RemindersEnqueued.Inc()
}
