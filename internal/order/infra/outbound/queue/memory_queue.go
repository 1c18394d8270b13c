package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// DefaultVisibilityTimeout es el tiempo que una entrega permanece invisible
// antes de volver a estar disponible si nadie la reconoce.
const DefaultVisibilityTimeout = 30 * time.Second

type storedMessage struct {
	id        string
	body      []byte
	receipt   string
	attempts  int
	visibleAt time.Time
}

// MemoryQueue es una cola at-least-once en memoria para un solo topic:
// cada recepción genera un receipt handle nuevo, Acknowledge borra el mensaje
// y las entregas no reconocidas reaparecen al vencer la visibilidad.
type MemoryQueue struct {
	messages    []*storedMessage
	visibility  time.Duration
	mu          sync.Mutex
	subscribers []chan struct{}
	now         func() time.Time
}

func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &MemoryQueue{
		visibility: visibility,
		now:        time.Now,
	}
}

// Publish encola el cuerpo. La clave no tiene efecto: hay una sola partición.
func (q *MemoryQueue) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.messages = append(q.messages, &storedMessage{
		id:        uuid.NewString(),
		body:      append([]byte(nil), body...),
		visibleAt: q.now(),
	})
	subs := q.subscribers
	q.mu.Unlock()

	q.notify(subs)
	return nil
}

// notify despierta a los consumidores sin bloquear al publicador.
func (q *MemoryQueue) notify(subs []chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe devuelve un canal que recibe una señal cada vez que llega un mensaje.
func (q *MemoryQueue) Subscribe() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan struct{}, 1)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Receive entrega hasta limit mensajes visibles y los oculta durante la visibilidad.
func (q *MemoryQueue) Receive(ctx context.Context, limit int) ([]domain.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []domain.QueueMessage
	for _, m := range q.messages {
		if len(out) >= limit {
			break
		}
		if now.Before(m.visibleAt) {
			continue
		}
		m.attempts++
		m.receipt = uuid.NewString()
		m.visibleAt = now.Add(q.visibility)
		out = append(out, domain.QueueMessage{
			MessageID:       m.id,
			ReceiptHandle:   m.receipt,
			Body:            append([]byte(nil), m.body...),
			DeliveryAttempt: m.attempts,
		})
	}
	return out, nil
}

// Acknowledge borra el mensaje si el receipt handle es el de la entrega vigente.
func (q *MemoryQueue) Acknowledge(ctx context.Context, msg domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.receipt != "" && m.receipt == msg.ReceiptHandle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: receipt handle %q is not current", domain.ErrQueueDelete, msg.ReceiptHandle)
}

// Len devuelve los mensajes aún no reconocidos, visibles o no.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

var (
	_ domain.QueuePublisher    = (*MemoryQueue)(nil)
	_ domain.QueueAcknowledger = (*MemoryQueue)(nil)
)
