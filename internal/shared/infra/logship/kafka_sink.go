package logship

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaSink escribe cada sobre como un mensaje en el topic de logs.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(writer *kafka.Writer) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Send(ctx context.Context, envelope string) error {
	return s.writer.WriteMessages(ctx, kafka.Message{Value: []byte(envelope)})
}

var _ Sink = (*KafkaSink)(nil)
