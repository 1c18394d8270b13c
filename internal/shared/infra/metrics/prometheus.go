// Package metrics expone los contadores de orderflow en formato Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type OrderflowMetrics struct {
	WebhookRequests *prometheus.CounterVec
	Messages        *prometheus.CounterVec
	Alerts          *prometheus.CounterVec
	registry        *prometheus.Registry
}

// New registra los contadores en un registry propio junto a los colectores de Go y proceso.
func New() *OrderflowMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &OrderflowMetrics{
		WebhookRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderflow_webhook_requests_total",
				Help: "Webhook invocations by response status code",
			},
			[]string{"status"},
		),
		Messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderflow_messages_total",
				Help: "Queue deliveries handled by the order consumer, by outcome",
			},
			[]string{"outcome"},
		),
		Alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderflow_alerts_total",
				Help: "Failure notifications handled, by result",
			},
			[]string{"result"},
		),
		registry: reg,
	}
}

func (m *OrderflowMetrics) WebhookHandled(statusCode int) {
	m.WebhookRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *OrderflowMetrics) MessageHandled(outcome string) {
	m.Messages.WithLabelValues(outcome).Inc()
}

func (m *OrderflowMetrics) AlertHandled(result string) {
	m.Alerts.WithLabelValues(result).Inc()
}

// Handler sirve GET /metrics.
func (m *OrderflowMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
