package domain

import "context"

// OrderEffect aplica el efecto de negocio de un pedido. Su contenido es opaco
// para el consumidor: sólo importa éxito o fallo.
type OrderEffect interface {
	Apply(ctx context.Context, p *InboundPayload) error
}

// EffectFunc adapta una función a OrderEffect.
type EffectFunc func(ctx context.Context, p *InboundPayload) error

func (f EffectFunc) Apply(ctx context.Context, p *InboundPayload) error {
	return f(ctx, p)
}
