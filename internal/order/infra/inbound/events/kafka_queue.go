package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
	"github.com/davicafu/orderflow/internal/shared/errlog"
	"github.com/davicafu/orderflow/internal/shared/infra/utils"
)

// Cabeceras que viajan con cada reentrega.
const (
	HeaderDeliveryAttempt = "x-delivery-attempt"
	HeaderMessageID       = "x-message-id"
)

const queueComponent = "order-queue"

// Fetcher y Writer son los subconjuntos de kafka.Reader y kafka.Writer que usa la cola.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaQueueConfig agrupa los parámetros del bucle de consumo.
type KafkaQueueConfig struct {
	BatchSize     int
	BatchWait     time.Duration
	MaxDeliveries int
	RetryAttempts int
	RetryDelay    time.Duration
}

// KafkaOrderQueue convierte un topic de Kafka en una cola con reconocimiento por mensaje.
// Kafka sólo confirma offsets, así que al final de cada lote los mensajes no
// reconocidos se vuelven a publicar en el topic (o en el DLQ al agotar entregas)
// y después se confirma el lote entero.
type KafkaOrderQueue struct {
	reader  Fetcher
	retry   Writer
	dlq     Writer
	topic   string
	cfg     KafkaQueueConfig
	mu      sync.Mutex
	pending map[string]bool
	// unsettled es el lote cuya liquidación falló. Se reintenta antes de
	// recoger nada nuevo: confirmar un offset posterior confirmaría también el suyo.
	unsettled *pendingBatch
	log       *zap.Logger
}

// pendingBatch es un lote ya procesado a la espera de reentregas y commit.
type pendingBatch struct {
	raw       []kafka.Message
	msgs      []domain.QueueMessage
	redeliver []int
}

func NewKafkaOrderQueue(reader Fetcher, retry, dlq Writer, topic string, cfg KafkaQueueConfig, log *zap.Logger) *KafkaOrderQueue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &KafkaOrderQueue{
		reader:  reader,
		retry:   retry,
		dlq:     dlq,
		topic:   topic,
		cfg:     cfg,
		pending: make(map[string]bool),
		log:     log,
	}
}

// Start inicia el bucle de consumo en una goroutine.
func (q *KafkaOrderQueue) Start(ctx context.Context, processor BatchProcessor) {
	q.log.Info("🎧 Iniciando consumidor de pedidos en Kafka...",
		zap.String("topic", q.topic),
		zap.Int("batch_size", q.cfg.BatchSize),
		zap.Int("max_deliveries", q.cfg.MaxDeliveries),
	)

	go func() {
		for {
			if err := q.PollOnce(ctx, processor); err != nil {
				if ctx.Err() != nil {
					q.log.Info("Consumidor de pedidos detenido.", zap.String("topic", q.topic))
					return
				}
				errlog.Log(q.log, "order queue batch failed", errlog.New(queueComponent, "", "", err))
				select {
				case <-ctx.Done():
				case <-time.After(q.cfg.RetryDelay):
				}
			}
		}
	}()
}

// PollOnce recoge un lote, lo procesa y lo liquida. Si queda un lote sin
// liquidar de una vuelta anterior, sólo reintenta ese lote.
func (q *KafkaOrderQueue) PollOnce(ctx context.Context, processor BatchProcessor) error {
	if q.unsettled != nil {
		q.log.Info("retrying settlement of previous order batch", zap.Int("pending_redeliveries", len(q.unsettled.redeliver)))
		return q.settle(ctx, q.unsettled)
	}

	raw, err := q.fetchBatch(ctx)
	if len(raw) == 0 || ctx.Err() != nil {
		return err
	}

	msgs := make([]domain.QueueMessage, 0, len(raw))
	q.mu.Lock()
	for _, m := range raw {
		qm := toQueueMessage(m)
		q.pending[qm.ReceiptHandle] = false
		msgs = append(msgs, qm)
	}
	q.mu.Unlock()

	processor.ProcessBatch(ctx, msgs)

	return q.settle(ctx, q.collect(raw, msgs))
}

// fetchBatch espera hasta BatchWait por el primer lote completo.
func (q *KafkaOrderQueue) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, q.cfg.BatchWait)
	defer cancel()

	var out []kafka.Message
	for len(out) < q.cfg.BatchSize {
		m, err := q.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return out, nil
			}
			return out, fmt.Errorf("fetch order message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Acknowledge marca la entrega como reconocida dentro del lote en curso.
func (q *KafkaOrderQueue) Acknowledge(ctx context.Context, msg domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	acked, ok := q.pending[msg.ReceiptHandle]
	if !ok || acked {
		return fmt.Errorf("%w: receipt handle %q is not pending", domain.ErrQueueDelete, msg.ReceiptHandle)
	}
	q.pending[msg.ReceiptHandle] = true
	return nil
}

// collect cierra el lote en curso y anota qué entregas no se reconocieron.
func (q *KafkaOrderQueue) collect(raw []kafka.Message, msgs []domain.QueueMessage) *pendingBatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := &pendingBatch{raw: raw, msgs: msgs}
	for i, m := range msgs {
		if !q.pending[m.ReceiptHandle] {
			b.redeliver = append(b.redeliver, i)
		}
		delete(q.pending, m.ReceiptHandle)
	}
	return b
}

// settle reentrega lo no reconocido y confirma el lote. Si falla una reentrega
// o el commit, el lote queda en unsettled y no se confirma ningún offset posterior.
// Las reentregas ya hechas no se repiten.
func (q *KafkaOrderQueue) settle(ctx context.Context, b *pendingBatch) error {
	q.unsettled = b
	redelivered := 0
	for len(b.redeliver) > 0 {
		i := b.redeliver[0]
		if err := q.redeliver(ctx, b.raw[i], b.msgs[i]); err != nil {
			return err
		}
		b.redeliver = b.redeliver[1:]
		redelivered++
	}

	if err := q.reader.CommitMessages(ctx, b.raw...); err != nil {
		return fmt.Errorf("%w: commit offsets: %w", domain.ErrQueueDelete, err)
	}
	q.unsettled = nil

	q.log.Debug("order batch committed",
		zap.Int("messages", len(b.raw)),
		zap.Int("redelivered", redelivered),
	)
	return nil
}

func (q *KafkaOrderQueue) redeliver(ctx context.Context, raw kafka.Message, msg domain.QueueMessage) error {
	next := kafka.Message{
		Key:   raw.Key,
		Value: raw.Value,
		Headers: []kafka.Header{
			{Key: HeaderMessageID, Value: []byte(msg.MessageID)},
			{Key: HeaderDeliveryAttempt, Value: []byte(strconv.Itoa(msg.DeliveryAttempt + 1))},
		},
	}

	target, dest := q.retry, "retry"
	if msg.DeliveryAttempt >= q.cfg.MaxDeliveries && q.dlq != nil {
		target, dest = q.dlq, "dead-letter"
	}

	err := utils.Retry(ctx, q.cfg.RetryAttempts, q.cfg.RetryDelay, func() error {
		return target.WriteMessages(ctx, next)
	})
	if err != nil {
		return fmt.Errorf("redeliver %s to %s: %w", msg.ReceiptHandle, dest, err)
	}

	q.log.Info("order message redelivered",
		zap.String("receipt", msg.ReceiptHandle),
		zap.String("destination", dest),
		zap.Int("delivery_attempt", msg.DeliveryAttempt),
	)
	return nil
}

func toQueueMessage(m kafka.Message) domain.QueueMessage {
	receipt := fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
	msg := domain.QueueMessage{
		MessageID:       receipt,
		ReceiptHandle:   receipt,
		Body:            m.Value,
		DeliveryAttempt: 1,
	}
	for _, h := range m.Headers {
		switch h.Key {
		case HeaderMessageID:
			if len(h.Value) > 0 {
				msg.MessageID = string(h.Value)
			}
		case HeaderDeliveryAttempt:
			if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
				msg.DeliveryAttempt = n
			}
		}
	}
	return msg
}

var (
	_ domain.QueueAcknowledger = (*KafkaOrderQueue)(nil)
	_ Fetcher                  = (*kafka.Reader)(nil)
	_ Writer                   = (*kafka.Writer)(nil)
)
