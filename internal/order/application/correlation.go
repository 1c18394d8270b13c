package application

import (
	"github.com/google/uuid"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// CorrelationTagger asigna a cada payload entrante un identificador nuevo
// que lo acompaña por todas las etapas asíncronas.
type CorrelationTagger struct {
	newID func() string
}

// NewCorrelationTagger usa UUID v4 si no se inyecta otro generador.
func NewCorrelationTagger(newID func() string) *CorrelationTagger {
	if newID == nil {
		newID = uuid.NewString
	}
	return &CorrelationTagger{newID: newID}
}

// Tag genera el id, lo asigna al payload y lo devuelve.
func (t *CorrelationTagger) Tag(p *domain.InboundPayload) string {
	id := t.newID()
	p.Tag(id)
	return id
}

// NewID genera un id para peticiones sin payload utilizable.
func (t *CorrelationTagger) NewID() string {
	return t.newID()
}
