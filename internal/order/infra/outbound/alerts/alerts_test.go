package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davicafu/orderflow/internal/mocks"
	"github.com/davicafu/orderflow/internal/order/domain"
)

func sampleAlert() domain.Alert {
	return domain.Alert{
		Subject:       "Order processing failure for order A1 (correlation c-1)",
		CorrelationID: "c-1",
		OrderID:       "A1",
		ErrorMessage:  "boom",
		RaisedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFanout_TriesEveryChannel(t *testing.T) {
	broken := &mocks.MockAlertPublisher{}
	broken.On("Publish", mock.Anything, mock.Anything).Return(errors.New("topic missing"))
	healthy := &mocks.MockAlertPublisher{}
	healthy.On("Publish", mock.Anything, mock.Anything).Return(nil)

	f := NewFanout(Channel{Name: "kafka", Publisher: broken}, Channel{Name: "log", Publisher: healthy})
	err := f.Publish(context.Background(), sampleAlert())

	assert.ErrorContains(t, err, "alert channel kafka: topic missing")
	healthy.AssertNumberOfCalls(t, "Publish", 1)
	assert.Equal(t, []string{"kafka", "log"}, f.Names())
}

func TestFanout_NoErrors(t *testing.T) {
	ok := &mocks.MockAlertPublisher{}
	ok.On("Publish", mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, NewFanout(Channel{Name: "log", Publisher: ok}).Publish(context.Background(), sampleAlert()))
}

func TestLogPublisher_WarnLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewLogPublisher(zap.New(core))

	assert.NoError(t, p.Publish(context.Background(), sampleAlert()))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "c-1", entries[0].ContextMap()["correlationId"])
}
