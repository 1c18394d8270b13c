package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// KafkaPublisher publica cada alerta como JSON en el topic de alertas.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, alert domain.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(alert.CorrelationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "subject", Value: []byte(alert.Subject)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.writer.Topic, err)
	}

	p.log.Debug("alert published to kafka", zap.String("correlationId", alert.CorrelationID))
	return nil
}

var _ domain.AlertPublisher = (*KafkaPublisher)(nil)
