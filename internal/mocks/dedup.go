package mocks

import (
	"context"
	"sync"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// InMemoryDedupStore guarda las marcas en un map y permite inyectar fallos
// de lectura o escritura por orderId.
type InMemoryDedupStore struct {
	Records   map[string]domain.DedupRecord
	FailFind  map[string]error
	FailWrite map[string]error
	Writes    int
	mu        sync.Mutex
}

func NewInMemoryDedupStore() *InMemoryDedupStore {
	return &InMemoryDedupStore{
		Records:   make(map[string]domain.DedupRecord),
		FailFind:  make(map[string]error),
		FailWrite: make(map[string]error),
	}
}

func (s *InMemoryDedupStore) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailFind[orderID]; err != nil {
		return domain.DedupRecord{}, false, err
	}
	rec, ok := s.Records[orderID]
	return rec, ok, nil
}

func (s *InMemoryDedupStore) Put(ctx context.Context, rec domain.DedupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailWrite[rec.OrderID]; err != nil {
		return err
	}
	s.Records[rec.OrderID] = rec
	s.Writes++
	return nil
}

func (s *InMemoryDedupStore) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailWrite[rec.OrderID]; err != nil {
		return false, err
	}
	if cur, ok := s.Records[rec.OrderID]; ok && !cur.Expired(rec.ProcessedAt) {
		return false, nil
	}
	s.Records[rec.OrderID] = rec
	s.Writes++
	return true, nil
}

var _ domain.DedupStore = (*InMemoryDedupStore)(nil)
