package queue

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// KafkaPublisher escribe los pedidos en el topic de la cola, con el orderId como clave
// de partición para que las entregas de un mismo pedido caigan en la misma partición.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, body []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrQueuePublish, err)
	}

	p.log.Debug("order published", zap.String("topic", p.writer.Topic), zap.String("orderId", key))
	return nil
}

// Verificación estática
var _ domain.QueuePublisher = (*KafkaPublisher)(nil)
