// Package errlog define el ErrorLogRecord: la única forma en la que un componente
// registra un fallo. Los campos van etiquetados para que el notificador de fallos
// los lea deserializando, sin expresiones regulares sobre texto libre.
package errlog

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Claves de los campos en la línea JSON de zap.
const (
	CorrelationIDKey = "correlationId"
	OrderIDKey       = "orderId"
	ErrorMessageKey  = "errorMessage"
	ComponentKey     = "component"
)

// UnknownCorrelationID se usa cuando no se pudo recuperar el correlation id.
const UnknownCorrelationID = "unknown"

// Record es un ErrorLogRecord.
type Record struct {
	Level         string  `json:"level,omitempty"`
	Timestamp     float64 `json:"ts,omitempty"`
	Message       string  `json:"msg,omitempty"`
	Component     string  `json:"component,omitempty"`
	CorrelationID string  `json:"correlationId"`
	OrderID       string  `json:"orderId,omitempty"`
	ErrorMessage  string  `json:"errorMessage"`
}

// New construye el registro desde un error. Un correlation id vacío se marca como desconocido.
func New(component, correlationID, orderID string, err error) Record {
	if correlationID == "" {
		correlationID = UnknownCorrelationID
	}
	rec := Record{
		Component:     component,
		CorrelationID: correlationID,
		OrderID:       orderID,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// Fields devuelve los campos zap del registro.
func (r Record) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String(ComponentKey, r.Component),
		zap.String(CorrelationIDKey, r.CorrelationID),
		zap.String(ErrorMessageKey, r.ErrorMessage),
	}
	if r.OrderID != "" {
		fields = append(fields, zap.String(OrderIDKey, r.OrderID))
	}
	return fields
}

// Log emite el registro a nivel error.
func Log(log *zap.Logger, msg string, rec Record) {
	log.Error(msg, rec.Fields()...)
}

// Parse lee una línea de log JSON como ErrorLogRecord.
// Exige al menos correlationId o errorMessage; si no, la línea no es un ErrorLogRecord.
func Parse(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("parse error log record: %w", err)
	}
	if rec.CorrelationID == "" && rec.ErrorMessage == "" {
		return Record{}, errors.New("log line is not an error log record")
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = UnknownCorrelationID
	}
	return rec, nil
}
