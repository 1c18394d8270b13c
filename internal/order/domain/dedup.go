package domain

import (
	"context"
	"fmt"
	"time"
)

// DedupRetention es la ventana durante la cual un pedido procesado no se vuelve a aplicar.
// Pasado ese plazo el registro expira y el pedido cuenta como nunca procesado.
const DedupRetention = 30 * 24 * time.Hour

// DedupRecord afirma que el efecto del pedido ya se aplicó.
// Se crea una vez, nunca se actualiza y sólo desaparece al expirar.
type DedupRecord struct {
	OrderID     string
	ProcessedAt time.Time
	ExpiresAt   time.Time
}

// NewDedupRecord crea el registro con la retención estándar.
func NewDedupRecord(orderID string, now time.Time) DedupRecord {
	now = now.UTC()
	return DedupRecord{
		OrderID:     orderID,
		ProcessedAt: now,
		ExpiresAt:   now.Add(DedupRetention),
	}
}

// Expired indica si el registro ya no es autoridad (expiresAt <= now).
func (r DedupRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// DedupItem es la forma persistida: key orderId, timestamp ISO-8601 y ttl en epoch seconds.
type DedupItem struct {
	OrderID   string `json:"orderId" bson:"_id"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
	TTL       int64  `json:"ttl" bson:"ttl"`
}

// Item convierte el registro a su forma persistida.
func (r DedupRecord) Item() DedupItem {
	return DedupItem{
		OrderID:   r.OrderID,
		Timestamp: r.ProcessedAt.UTC().Format(time.RFC3339Nano),
		TTL:       r.ExpiresAt.Unix(),
	}
}

// Record reconstruye el registro desde la forma persistida.
func (i DedupItem) Record() (DedupRecord, error) {
	processedAt, err := time.Parse(time.RFC3339Nano, i.Timestamp)
	if err != nil {
		return DedupRecord{}, fmt.Errorf("invalid dedup timestamp for order %s: %w", i.OrderID, err)
	}
	return DedupRecord{
		OrderID:     i.OrderID,
		ProcessedAt: processedAt.UTC(),
		ExpiresAt:   time.Unix(i.TTL, 0).UTC(),
	}, nil
}

// ---------- Interfaces (Ports) ----------

// DedupStore es el almacén durable de marcas de deduplicación, con clave orderId.
type DedupStore interface {
	// Find devuelve (record, true, nil) si existe, (zero, false, nil) si no.
	// Un registro expirado todavía no purgado puede devolverse; el llamador decide.
	Find(ctx context.Context, orderID string) (DedupRecord, bool, error)

	// Put escribe el registro incondicionalmente.
	Put(ctx context.Context, rec DedupRecord) error

	// PutIfAbsent inserta sólo si no hay un registro vigente para el orderId.
	// Devuelve false si otro registro vigente ya existía.
	PutIfAbsent(ctx context.Context, rec DedupRecord) (bool, error)
}

// ExpiredPurger lo implementan los stores sin expiración nativa (SQL).
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
