package effects

import (
	"context"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// LogEffect sólo registra el pedido. Es el efecto por defecto cuando no hay diario.
type LogEffect struct {
	log *zap.Logger
}

func NewLogEffect(log *zap.Logger) *LogEffect {
	return &LogEffect{log: log}
}

func (e *LogEffect) Apply(ctx context.Context, p *domain.InboundPayload) error {
	e.log.Info("✅ order applied",
		zap.String("orderId", p.OrderID),
		zap.String("correlationId", p.CorrelationID),
	)
	return nil
}

var _ domain.OrderEffect = (*LogEffect)(nil)
