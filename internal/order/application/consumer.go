package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
	"github.com/davicafu/orderflow/internal/shared/errlog"
)

const consumerComponent = "order-consumer"

// WriteMode decide cómo se escribe la marca de deduplicación tras aplicar el efecto.
type WriteMode string

const (
	// WriteModePut escribe la marca sin condición (check-then-put clásico).
	WriteModePut WriteMode = "put"
	// WriteModeInsertIfAbsent inserta sólo si no hay un registro vigente, de modo que
	// una entrega duplicada concurrente nunca sobrescribe processedAt.
	// El efecto puede seguir aplicándose dos veces en esa carrera.
	WriteModeInsertIfAbsent WriteMode = "insert_if_absent"
)

// Outcome clasifica el resultado de una entrega (ver tabla de fallos).
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeStoreReadFailed  Outcome = "store_read_failed"
	OutcomeEffectFailed     Outcome = "effect_failed"
	OutcomeStoreWriteFailed Outcome = "store_write_failed"
	OutcomeAckFailed        Outcome = "ack_failed"
)

// MessageResult informa, por entrega, si se reconoció el mensaje.
type MessageResult struct {
	ReceiptHandle string
	OrderID       string
	CorrelationID string
	Outcome       Outcome
	Acknowledged  bool
	Err           error
}

// OrderConsumer aplica cada pedido como mucho una vez usando el DedupStore.
// El registro de dedup se confirma SIEMPRE antes de reconocer el mensaje: si el
// proceso cae entre ambos pasos, la reentrega se salta como duplicado.
type OrderConsumer struct {
	store   domain.DedupStore
	effect  domain.OrderEffect
	queue   domain.QueueAcknowledger
	mode    WriteMode
	now     func() time.Time
	metrics Metrics
	log     *zap.Logger
}

func NewOrderConsumer(
	store domain.DedupStore,
	effect domain.OrderEffect,
	queue domain.QueueAcknowledger,
	mode WriteMode,
	metrics Metrics,
	log *zap.Logger,
) *OrderConsumer {
	if mode != WriteModePut {
		mode = WriteModeInsertIfAbsent
	}
	return &OrderConsumer{
		store:   store,
		effect:  effect,
		queue:   queue,
		mode:    mode,
		now:     func() time.Time { return time.Now().UTC() },
		metrics: metricsOrNoop(metrics),
		log:     log,
	}
}

// WithClock sustituye el reloj (tests de expiración).
func (c *OrderConsumer) WithClock(now func() time.Time) *OrderConsumer {
	c.now = now
	return c
}

// ProcessBatch procesa los mensajes en orden y de forma independiente:
// el fallo de uno no impide procesar los siguientes.
func (c *OrderConsumer) ProcessBatch(ctx context.Context, msgs []domain.QueueMessage) []MessageResult {
	results := make([]MessageResult, 0, len(msgs))
	for _, msg := range msgs {
		results = append(results, c.Process(ctx, msg))
	}

	acked := 0
	for _, r := range results {
		if r.Acknowledged {
			acked++
		}
	}
	c.log.Info("order batch processed", zap.Int("messages", len(msgs)), zap.Int("acknowledged", acked))
	return results
}

// Process ejecuta el algoritmo completo para una entrega.
func (c *OrderConsumer) Process(ctx context.Context, msg domain.QueueMessage) (res MessageResult) {
	res = MessageResult{ReceiptHandle: msg.ReceiptHandle}
	defer func() { c.metrics.MessageHandled(string(res.Outcome)) }()

	// 1. Decodificar
	payload, err := domain.DecodeQueueBody(msg.Body)
	if payload != nil {
		res.OrderID = payload.OrderID
		res.CorrelationID = payload.CorrelationID
	}
	if err != nil {
		return c.fail(res, OutcomeMalformed, "order message malformed", err)
	}

	log := c.log.With(
		zap.String(errlog.CorrelationIDKey, payload.CorrelationID),
		zap.String(errlog.OrderIDKey, payload.OrderID),
	)
	log.Info("processing order", zap.Int("delivery_attempt", msg.DeliveryAttempt))

	// 2. Buscar la marca de dedup. Un registro expirado cuenta como ausente.
	rec, found, err := c.store.Find(ctx, payload.OrderID)
	if err != nil {
		return c.fail(res, OutcomeStoreReadFailed, "dedup lookup failed", classify(domain.ErrStoreRead, err))
	}
	if found && !rec.Expired(c.now()) {
		log.Info("order already processed, skipping", zap.Time("processed_at", rec.ProcessedAt))
		return c.acknowledge(ctx, msg, res, OutcomeDuplicate, log)
	}

	// 3. Aplicar el efecto
	if err := c.apply(ctx, payload); err != nil {
		return c.fail(res, OutcomeEffectFailed, "order effect failed", classify(domain.ErrEffectFailed, err))
	}

	// 4. Registrar la marca antes de reconocer
	inserted, err := c.record(ctx, payload.OrderID)
	if err != nil {
		return c.fail(res, OutcomeStoreWriteFailed, "dedup record write failed", classify(domain.ErrStoreWrite, err))
	}
	if !inserted {
		log.Warn("concurrent duplicate delivery detected, dedup record already present")
	} else {
		log.Info("dedup record stored")
	}

	// 5. Reconocer
	return c.acknowledge(ctx, msg, res, OutcomeProcessed, log)
}

// apply aísla los pánicos del efecto para que no tumben el lote.
func (c *OrderConsumer) apply(ctx context.Context, p *domain.InboundPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("effect panicked: %v", r)
		}
	}()
	return c.effect.Apply(ctx, p)
}

func (c *OrderConsumer) record(ctx context.Context, orderID string) (bool, error) {
	rec := domain.NewDedupRecord(orderID, c.now())
	if c.mode == WriteModePut {
		return true, c.store.Put(ctx, rec)
	}
	return c.store.PutIfAbsent(ctx, rec)
}

func (c *OrderConsumer) acknowledge(ctx context.Context, msg domain.QueueMessage, res MessageResult, outcome Outcome, log *zap.Logger) MessageResult {
	if err := c.queue.Acknowledge(ctx, msg); err != nil {
		return c.fail(res, OutcomeAckFailed, "queue acknowledge failed", classify(domain.ErrQueueDelete, err))
	}
	log.Info("queue message acknowledged", zap.String("outcome", string(outcome)))
	res.Outcome = outcome
	res.Acknowledged = true
	return res
}

// fail registra el ErrorLogRecord y deja el mensaje para la reentrega.
func (c *OrderConsumer) fail(res MessageResult, outcome Outcome, msg string, err error) MessageResult {
	errlog.Log(c.log, msg, errlog.New(consumerComponent, res.CorrelationID, res.OrderID, err))
	res.Outcome = outcome
	res.Err = err
	return res
}
