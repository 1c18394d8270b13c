package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// Channel es un AlertPublisher con nombre, para identificar qué canal falló.
type Channel struct {
	Name      string
	Publisher domain.AlertPublisher
}

// Fanout entrega la alerta a todos los canales. Un canal caído no impide
// intentar los demás; los errores se devuelven juntos.
type Fanout struct {
	channels []Channel
}

func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{channels: channels}
}

func (f *Fanout) Publish(ctx context.Context, alert domain.Alert) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Publisher.Publish(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("alert channel %s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Names devuelve los canales configurados, para el log de arranque.
func (f *Fanout) Names() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.Name)
	}
	return names
}

var _ domain.AlertPublisher = (*Fanout)(nil)
