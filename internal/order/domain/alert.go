package domain

import (
	"context"
	"time"
)

// Alert es el mensaje dirigido a humanos que genera el notificador de fallos.
type Alert struct {
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	CorrelationID string    `json:"correlationId"`
	OrderID       string    `json:"orderId,omitempty"`
	ErrorMessage  string    `json:"errorMessage"`
	RawError      string    `json:"rawError"`
	RaisedAt      time.Time `json:"raisedAt"`
}

// AlertPublisher publica una alerta en un canal (topic, archivo analítico, log).
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert) error
}
