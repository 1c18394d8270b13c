package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Claves del payload que el sistema conoce. Todo lo demás viaja opaco.
const (
	OrderIDKey       = "orderId"
	CorrelationIDKey = "uuid"
)

// InboundPayload es el cuerpo de negocio recibido por el webhook.
// Los campos desconocidos se conservan tal cual (json.RawMessage) para que
// el mensaje de la cola sea el mismo objeto más el campo "uuid".
type InboundPayload struct {
	OrderID       string
	CorrelationID string
	fields        map[string]json.RawMessage
}

// ParseInboundPayload interpreta el body como un objeto JSON.
// Cualquier otra cosa (JSON inválido, null, array, escalar) es ErrMalformedPayload.
// Un "uuid" enviado por el cliente se descarta: el correlation id lo asigna el sistema.
func ParseInboundPayload(body []byte) (*InboundPayload, error) {
	p, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	delete(p.fields, CorrelationIDKey)
	p.CorrelationID = ""
	return p, nil
}

// DecodeQueueBody reconstruye el payload desde el cuerpo de un mensaje de la cola.
// Si el JSON es un objeto válido pero falta el orderId se devuelve el payload
// parcial junto al error, para poder registrar el correlation id recuperable.
func DecodeQueueBody(body []byte) (*InboundPayload, error) {
	p, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func decodeObject(body []byte) (*InboundPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedPayload)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	p := &InboundPayload{fields: fields}
	p.OrderID = stringField(fields, OrderIDKey)
	p.CorrelationID = stringField(fields, CorrelationIDKey)
	return p, nil
}

// stringField devuelve el valor si es un string JSON; cualquier otro tipo cuenta como ausente.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Tag asigna el correlation id. Se llama una única vez, en la ingesta.
func (p *InboundPayload) Tag(correlationID string) {
	p.CorrelationID = correlationID
}

// Validate exige un orderId string no vacío.
func (p *InboundPayload) Validate() error {
	if strings.TrimSpace(p.OrderID) == "" {
		return fmt.Errorf("%w: %s must be a non-empty string", ErrMalformedPayload, OrderIDKey)
	}
	return nil
}

// Field devuelve un campo opaco tal y como llegó.
func (p *InboundPayload) Field(key string) (json.RawMessage, bool) {
	raw, ok := p.fields[key]
	return raw, ok
}

// MarshalJSON produce el cuerpo del mensaje de cola: el objeto original más "uuid".
func (p *InboundPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.fields)+1)
	for k, v := range p.fields {
		out[k] = v
	}
	if p.CorrelationID != "" {
		id, err := json.Marshal(p.CorrelationID)
		if err != nil {
			return nil, err
		}
		out[CorrelationIDKey] = id
	}
	return json.Marshal(out)
}
