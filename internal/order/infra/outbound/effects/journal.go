package effects

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// JournalEntry es un pedido aplicado tal y como queda en el fichero.
type JournalEntry struct {
	OrderID       string          `json:"orderId"`
	CorrelationID string          `json:"correlationId"`
	AppliedAt     time.Time       `json:"appliedAt"`
	Payload       json.RawMessage `json:"payload"`
}

// JSONJournal es un efecto que añade cada pedido aplicado a un fichero JSON.
type JSONJournal struct {
	filePath string
	now      func() time.Time
	mu       sync.Mutex // serializa lectura + reescritura del fichero
}

func NewJSONJournal(filePath string) *JSONJournal {
	return &JSONJournal{
		filePath: filePath,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Apply añade el pedido al diario. Si el fichero no existe, lo crea.
func (j *JSONJournal) Apply(ctx context.Context, p *domain.InboundPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return err
	}

	entries = append(entries, JournalEntry{
		OrderID:       p.OrderID,
		CorrelationID: p.CorrelationID,
		AppliedAt:     j.now(),
		Payload:       payload,
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return j.replace(data)
}

// replace escribe en un temporal del mismo directorio y lo renombra sobre el diario,
// así una caída a mitad de escritura deja intacta la versión anterior.
func (j *JSONJournal) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(j.filePath), filepath.Base(j.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op tras el rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, j.filePath)
}

// Entries devuelve el contenido del diario.
func (j *JSONJournal) Entries(ctx context.Context) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.readAll()
}

func (j *JSONJournal) readAll() ([]JournalEntry, error) {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []JournalEntry{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []JournalEntry{}, nil
	}

	var entries []JournalEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ domain.OrderEffect = (*JSONJournal)(nil)
