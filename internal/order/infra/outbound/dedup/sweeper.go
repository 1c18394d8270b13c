package dedup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// Sweeper purga periódicamente los registros expirados de los stores sin TTL nativo.
type Sweeper struct {
	purger   domain.ExpiredPurger
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewSweeper(purger domain.ExpiredPurger, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		purger:   purger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Start bloquea hasta que se cancela el contexto.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("🧹 Dedup sweeper iniciado", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("🛑 Dedup sweeper detenido.")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep ejecuta una purga. Un fallo sólo se registra: la marca expirada ya cuenta como ausente.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		s.log.Warn("⚠️ Error al purgar registros de dedup expirados", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.log.Info("dedup records purged", zap.Int64("count", n))
	}
	return n
}
