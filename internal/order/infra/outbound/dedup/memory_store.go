package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// MemoryStore implementa DedupStore con un mapa en memoria.
// Una goroutine de limpieza borra periódicamente los registros expirados.
type MemoryStore struct {
	store    map[string]domain.DedupRecord
	mu       sync.RWMutex
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore crea el store y arranca la limpieza cada cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		store:    make(map[string]domain.DedupRecord),
		now:      func() time.Time { return time.Now().UTC() },
		stopChan: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Find puede devolver un registro expirado aún no purgado.
func (s *MemoryStore) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.store[orderID]
	return rec, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec domain.DedupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[rec.OrderID] = rec
	return nil
}

func (s *MemoryStore) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.store[rec.OrderID]; ok && !cur.Expired(s.now()) {
		return false, nil
	}
	s.store[rec.OrderID] = rec
	return true, nil
}

// PurgeExpired borra los registros con expiresAt <= now.
func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.store {
		if rec.Expired(now) {
			delete(s.store, id)
			n++
		}
	}
	return n, nil
}

// Stop detiene la goroutine de limpieza.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.PurgeExpired(context.Background(), s.now())
		case <-s.stopChan:
			return
		}
	}
}

var (
	_ domain.DedupStore    = (*MemoryStore)(nil)
	_ domain.ExpiredPurger = (*MemoryStore)(nil)
)
