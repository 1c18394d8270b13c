package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// Receiver es la parte de lectura de la cola en memoria.
type Receiver interface {
	Receive(ctx context.Context, limit int) ([]domain.QueueMessage, error)
	Subscribe() <-chan struct{}
}

// MemoryQueueWorker sondea la cola en memoria y entrega lotes al OrderConsumer.
// Se despierta al publicarse un mensaje o en cada tick, para recoger las
// entregas cuya visibilidad ha vencido.
type MemoryQueueWorker struct {
	queue     Receiver
	processor BatchProcessor
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewMemoryQueueWorker(queue Receiver, processor BatchProcessor, interval time.Duration, batchSize int, log *zap.Logger) *MemoryQueueWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MemoryQueueWorker{
		queue:     queue,
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Start bloquea hasta que se cancela el contexto.
func (w *MemoryQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	signal := w.queue.Subscribe()

	w.log.Info("🚀 Memory queue worker iniciado", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Memory queue worker detenido.")
			return
		case <-signal:
			w.Drain(ctx)
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain procesa lotes hasta vaciar los mensajes visibles.
func (w *MemoryQueueWorker) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		msgs, err := w.queue.Receive(ctx, w.batchSize)
		if err != nil {
			w.log.Warn("⚠️ Error al recibir de la cola en memoria", zap.Error(err))
			return
		}
		if len(msgs) == 0 {
			return
		}
		w.processor.ProcessBatch(ctx, msgs)
	}
}
