package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
	"github.com/davicafu/orderflow/internal/shared/errlog"
	"github.com/davicafu/orderflow/internal/shared/infra/logship"
)

// Resultados del notificador (métrica orderflow_alerts_total{result}).
const (
	AlertPublished     = "published"
	AlertDecodeFailed  = "decode_failed"
	AlertPublishFailed = "publish_failed"
)

var errEmptyBatch = errors.New("log batch has no events")

// FailureNotifier convierte un sobre de la suscripción de logs en una alerta.
// Nunca registra a nivel error: sus propios fallos no deben volver a la suscripción.
type FailureNotifier struct {
	publisher domain.AlertPublisher
	now       func() time.Time
	metrics   Metrics
	log       *zap.Logger
}

func NewFailureNotifier(publisher domain.AlertPublisher, metrics Metrics, log *zap.Logger) *FailureNotifier {
	return &FailureNotifier{
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		metrics:   metricsOrNoop(metrics),
		log:       log,
	}
}

// Handle procesa un sobre. Los fallos se capturan y se registran en local;
// el error se devuelve sólo para que el driver decida si confirma el mensaje.
func (n *FailureNotifier) Handle(ctx context.Context, envelope string) error {
	alert, err := n.BuildAlert(envelope)
	if err != nil {
		n.metrics.AlertHandled(AlertDecodeFailed)
		n.log.Warn("failure notification dropped, envelope unreadable", zap.Error(err))
		return err
	}

	if err := n.publisher.Publish(ctx, alert); err != nil {
		n.metrics.AlertHandled(AlertPublishFailed)
		n.log.Warn("alert publish failed",
			zap.String(errlog.CorrelationIDKey, alert.CorrelationID),
			zap.String(errlog.OrderIDKey, alert.OrderID),
			zap.Error(err),
		)
		return err
	}

	n.metrics.AlertHandled(AlertPublished)
	n.log.Info("alert published",
		zap.String(errlog.CorrelationIDKey, alert.CorrelationID),
		zap.String(errlog.OrderIDKey, alert.OrderID),
	)
	return nil
}

// BuildAlert decodifica el sobre y construye la alerta a partir del primer evento del lote.
func (n *FailureNotifier) BuildAlert(envelope string) (domain.Alert, error) {
	batch, err := logship.Decode(envelope)
	if err != nil {
		return domain.Alert{}, err
	}
	if len(batch.LogEvents) == 0 {
		return domain.Alert{}, fmt.Errorf("%w: %w", domain.ErrDecode, errEmptyBatch)
	}

	raw := batch.LogEvents[0].Message
	rec, err := errlog.Parse([]byte(raw))
	if err != nil {
		return domain.Alert{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}

	return domain.Alert{
		Subject:       alertSubject(rec),
		Body:          alertBody(rec, raw),
		CorrelationID: rec.CorrelationID,
		OrderID:       rec.OrderID,
		ErrorMessage:  rec.ErrorMessage,
		RawError:      raw,
		RaisedAt:      n.now(),
	}, nil
}

func alertSubject(rec errlog.Record) string {
	if rec.OrderID != "" {
		return fmt.Sprintf("Order processing failure for order %s (correlation %s)", rec.OrderID, rec.CorrelationID)
	}
	return fmt.Sprintf("Order processing failure (correlation %s)", rec.CorrelationID)
}

func alertBody(rec errlog.Record, raw string) string {
	var b strings.Builder
	b.WriteString("An error occurred while processing an order.\n\n")
	fmt.Fprintf(&b, "Correlation ID: %s\n", rec.CorrelationID)
	if rec.OrderID != "" {
		fmt.Fprintf(&b, "Order ID: %s\n", rec.OrderID)
	}
	if rec.Component != "" {
		fmt.Fprintf(&b, "Component: %s\n", rec.Component)
	}
	fmt.Fprintf(&b, "Error: %s\n\n", rec.ErrorMessage)
	fmt.Fprintf(&b, "Raw log entry:\n%s\n", raw)
	return b.String()
}
