package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davicafu/orderflow/internal/mocks"
	"github.com/davicafu/orderflow/internal/order/domain"
	"github.com/davicafu/orderflow/internal/shared/errlog"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type consumerFixture struct {
	store   *mocks.InMemoryDedupStore
	effect  *mocks.MockEffect
	ack     *mocks.MockAcknowledger
	logs    *observer.ObservedLogs
	metrics *countingMetrics
	svc     *OrderConsumer
}

func newConsumerFixture(mode WriteMode) *consumerFixture {
	core, logs := observer.New(zapcore.InfoLevel)
	f := &consumerFixture{
		store:   mocks.NewInMemoryDedupStore(),
		effect:  &mocks.MockEffect{},
		ack:     &mocks.MockAcknowledger{},
		logs:    logs,
		metrics: newCountingMetrics(),
	}
	f.svc = NewOrderConsumer(f.store, f.effect, f.ack, mode, f.metrics, zap.New(core)).
		WithClock(func() time.Time { return testNow })
	return f
}

func queueMsg(receipt, body string) domain.QueueMessage {
	return domain.QueueMessage{MessageID: "m-" + receipt, ReceiptHandle: receipt, Body: []byte(body), DeliveryAttempt: 1}
}

func byReceipt(receipt string) any {
	return mock.MatchedBy(func(m domain.QueueMessage) bool { return m.ReceiptHandle == receipt })
}

func errorRecords(logs *observer.ObservedLogs) []map[string]any {
	var out []map[string]any
	for _, e := range logs.FilterLevelExact(zapcore.ErrorLevel).All() {
		out = append(out, e.ContextMap())
	}
	return out
}

func TestOrderConsumer_ExampleScenario(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil).Once()
	f.ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

	body := `{"orderId":"A1","uuid":"c-1"}`

	// Primera entrega: efecto, marca y ack
	res := f.svc.Process(context.Background(), queueMsg("r-1", body))
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, "A1", res.OrderID)
	assert.Equal(t, "c-1", res.CorrelationID)

	rec, ok := f.store.Records["A1"]
	require.True(t, ok)
	assert.Equal(t, testNow, rec.ProcessedAt)
	assert.Equal(t, testNow.Add(30*24*time.Hour), rec.ExpiresAt)
	assert.Equal(t, testNow.Unix()+2592000, rec.Item().TTL)

	// Reentrega con otro receipt handle: se salta y se reconoce igualmente
	res = f.svc.Process(context.Background(), queueMsg("r-2", body))
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.True(t, res.Acknowledged)

	f.effect.AssertNumberOfCalls(t, "Apply", 1)
	f.ack.AssertNumberOfCalls(t, "Acknowledge", 2)
	assert.Equal(t, 1, f.store.Writes)
	assert.Equal(t, 1, f.logs.FilterMessage("order already processed, skipping").Len())
	assert.Empty(t, errorRecords(f.logs))
}

func TestOrderConsumer_Idempotence(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil)
	f.ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

	body := `{"orderId":"A7","uuid":"c-7"}`
	for i := 0; i < 5; i++ {
		f.svc.Process(context.Background(), queueMsg("r", body))
	}

	f.effect.AssertNumberOfCalls(t, "Apply", 1)
	assert.Equal(t, 1, f.store.Writes)
	assert.Equal(t, 1, f.metrics.messages[string(OutcomeProcessed)])
	assert.Equal(t, 4, f.metrics.messages[string(OutcomeDuplicate)])
}

func TestOrderConsumer_Failures(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		setup       func(f *consumerFixture)
		wantOutcome Outcome
		wantErr     error
		wantEffect  int
		wantRecord  bool
		wantCorrID  string
	}{
		{
			name:        "cuerpo no JSON",
			body:        `garbage`,
			wantOutcome: OutcomeMalformed,
			wantErr:     domain.ErrMalformedPayload,
			wantCorrID:  errlog.UnknownCorrelationID,
		},
		{
			name:        "sin orderId conserva el correlation id",
			body:        `{"uuid":"c-9"}`,
			wantOutcome: OutcomeMalformed,
			wantErr:     domain.ErrMalformedPayload,
			wantCorrID:  "c-9",
		},
		{
			name: "fallo de lectura del store",
			body: `{"orderId":"A1","uuid":"c-1"}`,
			setup: func(f *consumerFixture) {
				f.store.FailFind["A1"] = errors.New("table unavailable")
			},
			wantOutcome: OutcomeStoreReadFailed,
			wantErr:     domain.ErrStoreRead,
			wantCorrID:  "c-1",
		},
		{
			name: "fallo del efecto",
			body: `{"orderId":"A1","uuid":"c-1"}`,
			setup: func(f *consumerFixture) {
				f.effect.On("Apply", mock.Anything, mock.Anything).Return(errors.New("downstream 503"))
			},
			wantOutcome: OutcomeEffectFailed,
			wantErr:     domain.ErrEffectFailed,
			wantEffect:  1,
			wantCorrID:  "c-1",
		},
		{
			name: "fallo de escritura del store",
			body: `{"orderId":"A1","uuid":"c-1"}`,
			setup: func(f *consumerFixture) {
				f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil)
				f.store.FailWrite["A1"] = errors.New("throttled")
			},
			wantOutcome: OutcomeStoreWriteFailed,
			wantErr:     domain.ErrStoreWrite,
			wantEffect:  1,
			wantCorrID:  "c-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConsumerFixture(WriteModeInsertIfAbsent)
			if tt.setup != nil {
				tt.setup(f)
			}

			res := f.svc.Process(context.Background(), queueMsg("r-1", tt.body))

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.False(t, res.Acknowledged)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			f.ack.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
			f.effect.AssertNumberOfCalls(t, "Apply", tt.wantEffect)
			_, recorded := f.store.Records["A1"]
			assert.Equal(t, tt.wantRecord, recorded)

			recs := errorRecords(f.logs)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.wantCorrID, recs[0][errlog.CorrelationIDKey])
			assert.Equal(t, consumerComponent, recs[0][errlog.ComponentKey])
			assert.NotEmpty(t, recs[0][errlog.ErrorMessageKey])
		})
	}
}

func TestOrderConsumer_AckFailureRedeliveryIsSkipped(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil).Once()
	f.ack.On("Acknowledge", mock.Anything, byReceipt("r-1")).Return(errors.New("receipt expired")).Once()
	f.ack.On("Acknowledge", mock.Anything, byReceipt("r-2")).Return(nil).Once()

	body := `{"orderId":"A1","uuid":"c-1"}`

	res := f.svc.Process(context.Background(), queueMsg("r-1", body))
	assert.Equal(t, OutcomeAckFailed, res.Outcome)
	assert.False(t, res.Acknowledged)
	assert.ErrorIs(t, res.Err, domain.ErrQueueDelete)
	// La marca ya está confirmada antes del ack
	assert.Contains(t, f.store.Records, "A1")

	res = f.svc.Process(context.Background(), queueMsg("r-2", body))
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.True(t, res.Acknowledged)
	f.effect.AssertNumberOfCalls(t, "Apply", 1)
	f.ack.AssertExpectations(t)
}

func TestOrderConsumer_ExpiredRecordTreatedAsAbsent(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	old := domain.NewDedupRecord("A1", testNow.Add(-31*24*time.Hour))
	f.store.Records["A1"] = old
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil).Once()
	f.ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

	res := f.svc.Process(context.Background(), queueMsg("r-1", `{"orderId":"A1","uuid":"c-1"}`))

	assert.Equal(t, OutcomeProcessed, res.Outcome)
	f.effect.AssertNumberOfCalls(t, "Apply", 1)
	assert.Equal(t, testNow, f.store.Records["A1"].ProcessedAt)
}

func TestOrderConsumer_BatchIsolation(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(nil)
	f.ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)
	f.store.FailWrite["B2"] = errors.New("throttled")

	results := f.svc.ProcessBatch(context.Background(), []domain.QueueMessage{
		queueMsg("r-1", `{"orderId":"B1","uuid":"c-1"}`),
		queueMsg("r-2", `{"orderId":"B2","uuid":"c-2"}`),
		queueMsg("r-3", `{"orderId":"B3","uuid":"c-3"}`),
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Acknowledged)
	assert.False(t, results[1].Acknowledged)
	assert.Equal(t, OutcomeStoreWriteFailed, results[1].Outcome)
	assert.True(t, results[2].Acknowledged)

	f.effect.AssertNumberOfCalls(t, "Apply", 3)
	f.ack.AssertNumberOfCalls(t, "Acknowledge", 2)
	f.ack.AssertNotCalled(t, "Acknowledge", mock.Anything, byReceipt("r-2"))
	assert.Contains(t, f.store.Records, "B1")
	assert.NotContains(t, f.store.Records, "B2")
	assert.Contains(t, f.store.Records, "B3")
}

func TestOrderConsumer_EffectPanicIsIsolated(t *testing.T) {
	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)
	calls := 0
	f.svc.effect = domain.EffectFunc(func(ctx context.Context, p *domain.InboundPayload) error {
		calls++
		if p.OrderID == "P1" {
			panic("nil map")
		}
		return nil
	})

	results := f.svc.ProcessBatch(context.Background(), []domain.QueueMessage{
		queueMsg("r-1", `{"orderId":"P1","uuid":"c-1"}`),
		queueMsg("r-2", `{"orderId":"P2","uuid":"c-2"}`),
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, OutcomeEffectFailed, results[0].Outcome)
	assert.Contains(t, results[0].Err.Error(), "effect panicked")
	assert.Equal(t, OutcomeProcessed, results[1].Outcome)
}

func TestOrderConsumer_WriteModes(t *testing.T) {
	body := `{"orderId":"A1","uuid":"c-1"}`

	t.Run("put escribe incondicionalmente", func(t *testing.T) {
		store := &mocks.MockDedupStore{}
		store.On("Find", mock.Anything, "A1").Return(domain.DedupRecord{}, false, nil)
		store.On("Put", mock.Anything, mock.MatchedBy(func(r domain.DedupRecord) bool {
			return r.OrderID == "A1" && r.ProcessedAt.Equal(testNow)
		})).Return(nil).Once()
		effect := &mocks.MockEffect{}
		effect.On("Apply", mock.Anything, mock.Anything).Return(nil)
		ack := &mocks.MockAcknowledger{}
		ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

		svc := NewOrderConsumer(store, effect, ack, WriteModePut, nil, zap.NewNop()).
			WithClock(func() time.Time { return testNow })
		res := svc.Process(context.Background(), queueMsg("r-1", body))

		assert.Equal(t, OutcomeProcessed, res.Outcome)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
	})

	t.Run("insert_if_absent detecta el duplicado concurrente", func(t *testing.T) {
		store := &mocks.MockDedupStore{}
		store.On("Find", mock.Anything, "A1").Return(domain.DedupRecord{}, false, nil)
		store.On("PutIfAbsent", mock.Anything, mock.Anything).Return(false, nil).Once()
		effect := &mocks.MockEffect{}
		effect.On("Apply", mock.Anything, mock.Anything).Return(nil)
		ack := &mocks.MockAcknowledger{}
		ack.On("Acknowledge", mock.Anything, mock.Anything).Return(nil)

		core, logs := observer.New(zapcore.InfoLevel)
		svc := NewOrderConsumer(store, effect, ack, WriteModeInsertIfAbsent, nil, zap.New(core))
		res := svc.Process(context.Background(), queueMsg("r-1", body))

		assert.Equal(t, OutcomeProcessed, res.Outcome)
		assert.True(t, res.Acknowledged)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("modo desconocido usa insert_if_absent", func(t *testing.T) {
		svc := NewOrderConsumer(nil, nil, nil, WriteMode("bogus"), nil, zap.NewNop())
		assert.Equal(t, WriteModeInsertIfAbsent, svc.mode)
	})
}

func TestCorrelationPropagation(t *testing.T) {
	// La respuesta del webhook, el mensaje en cola y el ErrorLogRecord comparten id
	pub := &mocks.MockPublisher{}
	var queued []byte
	pub.On("Publish", mock.Anything, "A1", mock.Anything).
		Run(func(args mock.Arguments) { queued = args.Get(2).([]byte) }).
		Return(nil)
	ingest := NewWebhookIngestor(pub, fixedTagger("c-42"), testSecret, nil, zap.NewNop())
	resp := ingest.Handle(context.Background(), signedRequest(`{"orderId":"A1"}`, testSecret))
	require.Equal(t, "c-42", resp.Body.UUID)

	f := newConsumerFixture(WriteModeInsertIfAbsent)
	f.effect.On("Apply", mock.Anything, mock.Anything).Return(errors.New("boom"))
	f.svc.Process(context.Background(), domain.QueueMessage{ReceiptHandle: "r-1", Body: queued})

	recs := errorRecords(f.logs)
	require.Len(t, recs, 1)
	assert.Equal(t, resp.Body.UUID, recs[0][errlog.CorrelationIDKey])
	assert.Equal(t, "A1", recs[0][errlog.OrderIDKey])
}
