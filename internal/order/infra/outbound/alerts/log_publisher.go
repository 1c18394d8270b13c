package alerts

import (
	"context"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// LogPublisher escribe la alerta en el log local. Usa nivel warn para que la
// propia alerta no vuelva a entrar en el envío de logs de error.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, alert domain.Alert) error {
	p.log.Warn("🚨 "+alert.Subject,
		zap.String("correlationId", alert.CorrelationID),
		zap.String("orderId", alert.OrderID),
		zap.String("alert_error", alert.ErrorMessage),
		zap.Time("raised_at", alert.RaisedAt),
	)
	return nil
}

var _ domain.AlertPublisher = (*LogPublisher)(nil)
