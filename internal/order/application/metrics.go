package application

// Metrics recibe los resultados de cada caso de uso. La implementación
// Prometheus vive en internal/shared/infra/metrics.
type Metrics interface {
	WebhookHandled(statusCode int)
	MessageHandled(outcome string)
	AlertHandled(result string)
}

type noopMetrics struct{}

func (noopMetrics) WebhookHandled(int) {}
func (noopMetrics) MessageHandled(string) {}
func (noopMetrics) AlertHandled(string) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
