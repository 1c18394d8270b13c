package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader es el subconjunto de kafka.Reader con commit automático por grupo.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
}

// LogEnvelopeConsumer escucha el topic de logs y pasa cada sobre al FailureNotifier.
// Todo lo que registra va a nivel warn o inferior: sus errores no deben volver al topic.
type LogEnvelopeConsumer struct {
	reader  MessageReader
	handler EnvelopeHandler
	log     *zap.Logger
}

func NewLogEnvelopeConsumer(reader MessageReader, handler EnvelopeHandler, log *zap.Logger) *LogEnvelopeConsumer {
	return &LogEnvelopeConsumer{
		reader:  reader,
		handler: handler,
		log:     log,
	}
}

// Start inicia el bucle de consumo de sobres en una goroutine.
func (c *LogEnvelopeConsumer) Start(ctx context.Context) {
	c.log.Info("🎧 Iniciando consumidor de logs de error...",
		zap.String("topic", c.reader.Config().Topic),
		zap.Strings("brokers", c.reader.Config().Brokers),
	)

	go func() {
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("Consumidor de logs detenido.", zap.String("topic", c.reader.Config().Topic))
					return
				}
				c.log.Warn("Error al leer sobre de logs", zap.Error(err))
				continue
			}

			// El notificador ya registra sus fallos; el sobre se da por consumido.
			_ = c.handler.Handle(ctx, string(msg.Value))
		}
	}()
}
