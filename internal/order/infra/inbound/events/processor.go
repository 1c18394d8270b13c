package events

import (
	"context"

	"github.com/davicafu/orderflow/internal/order/application"
	"github.com/davicafu/orderflow/internal/order/domain"
)

// BatchProcessor es el OrderConsumer visto desde los drivers de cola.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, msgs []domain.QueueMessage) []application.MessageResult
}

// EnvelopeHandler es el FailureNotifier visto desde el driver de logs.
type EnvelopeHandler interface {
	Handle(ctx context.Context, envelope string) error
}

var (
	_ BatchProcessor  = (*application.OrderConsumer)(nil)
	_ EnvelopeHandler = (*application.FailureNotifier)(nil)
)
