package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davicafu/orderflow/internal/order/domain"
)

// MockPublisher simula la cola de pedidos
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, body []byte) error {
	args := m.Called(ctx, key, body)
	return args.Error(0)
}

// MockAcknowledger simula el borrado de entregas
type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Acknowledge(ctx context.Context, msg domain.QueueMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockEffect simula el efecto de negocio
type MockEffect struct {
	mock.Mock
}

func (m *MockEffect) Apply(ctx context.Context, p *domain.InboundPayload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockDedupStore simula el almacén de deduplicación
type MockDedupStore struct {
	mock.Mock
}

func (m *MockDedupStore) Find(ctx context.Context, orderID string) (domain.DedupRecord, bool, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.DedupRecord), args.Bool(1), args.Error(2)
}

func (m *MockDedupStore) Put(ctx context.Context, rec domain.DedupRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockDedupStore) PutIfAbsent(ctx context.Context, rec domain.DedupRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

// MockAlertPublisher simula un canal de alertas
type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) Publish(ctx context.Context, alert domain.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

var (
	_ domain.QueuePublisher    = (*MockPublisher)(nil)
	_ domain.QueueAcknowledger = (*MockAcknowledger)(nil)
	_ domain.OrderEffect       = (*MockEffect)(nil)
	_ domain.DedupStore        = (*MockDedupStore)(nil)
	_ domain.AlertPublisher    = (*MockAlertPublisher)(nil)
)
