package domain

import "context"

// QueueMessage es una entrega concreta de un mensaje de la cola.
// ReceiptHandle identifica ESTE intento de entrega: una reentrega del mismo
// mensaje lógico trae un handle distinto.
type QueueMessage struct {
	MessageID       string
	ReceiptHandle   string
	Body            []byte
	DeliveryAttempt int
}

// QueuePublisher entrega un payload a la cola durable (at-least-once).
// key se usa como clave de partición cuando el transporte la soporta.
type QueuePublisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// QueueAcknowledger elimina de la cola una entrega ya procesada.
// Un mensaje no reconocido queda para la reentrega nativa de la cola.
type QueueAcknowledger interface {
	Acknowledge(ctx context.Context, msg QueueMessage) error
}
