package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts EventSub webhook deliveries.
type WebhookMetrics struct {
	Messages *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_messages_total",
			Help:      "EventSub webhook messages by message type and outcome.",
		}, []string{"type", "outcome"}),
	}

	reg.MustRegister(m.Messages)
	return m
}

// Observe matches the webhook handler's observer hook.
func (m *WebhookMetrics) Observe(messageType, outcome string) {
	m.Messages.WithLabelValues(messageType, outcome).Inc()
}
