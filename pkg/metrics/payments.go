package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics tracks the checkout-to-fulfillment pipeline.
type PaymentMetrics struct {
	checkouts    *prometheus.CounterVec
	rateLimited  prometheus.Counter
	webhooks     *prometheus.CounterVec
	fulfillments *prometheus.CounterVec
	grossAmount  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on reg. A nil registerer
// yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	m := &PaymentMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_created_total",
			Help:      "Checkout sessions created, by purchase kind.",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_rate_limited_total",
			Help:      "Checkout requests refused by the per-buyer rate limit.",
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries, by event type and outcome.",
		}, []string{"type", "outcome"}),
		fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillments_total",
			Help:      "Fulfillment attempts, by purchase kind and outcome.",
		}, []string{"kind", "outcome"}),
		grossAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfilled_amount_minor_total",
			Help:      "Confirmed payment volume in minor currency units.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.checkouts, m.rateLimited, m.webhooks, m.fulfillments, m.grossAmount)
	return m
}

func (m *PaymentMetrics) IncCheckoutCreated(kind string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *PaymentMetrics) IncRateLimited() {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *PaymentMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveFulfillment counts an attempt and, when it created rows, its amount.
func (m *PaymentMetrics) ObserveFulfillment(kind, outcome string, amount int64) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
	if outcome == "fulfilled" && amount > 0 {
		m.grossAmount.WithLabelValues(normalizeLabel(kind)).Add(float64(amount))
	}
}
