package application

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/domain"
	"github.com/davicafu/orderflow/internal/shared/errlog"
)

const ingestComponent = "webhook-ingestion"

// IngestState es el estado final de una invocación del webhook:
// received -> validated -> enqueued -> acknowledged, con salidas rejected (401) y failed (500).
type IngestState string

const (
	StateAcknowledged IngestState = "acknowledged"
	StateRejected     IngestState = "rejected"
	StateFailed       IngestState = "failed"
)

// Mensajes de respuesta del webhook.
const (
	MessageQueued       = "Webhook received and queued for processing."
	MessageUnauthorized = "Unauthorized"
	MessageInternal     = "Internal Server Error"
)

// WebhookRequest es la petición HTTP ya leída, independiente del framework.
// ReadErr recoge el fallo al leer el cuerpo (demasiado grande, conexión cortada).
type WebhookRequest struct {
	Headers http.Header
	Body    []byte
	ReadErr error
}

// WebhookResponseBody es el JSON devuelto al emisor.
type WebhookResponseBody struct {
	Message string `json:"message"`
	UUID    string `json:"uuid,omitempty"`
	Error   string `json:"error,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// WebhookResponse es el resultado de una invocación.
type WebhookResponse struct {
	StatusCode int
	State      IngestState
	Body       WebhookResponseBody
}

// WebhookIngestor compone verificación de firma, etiquetado de correlación y
// publicación en cola. No guarda estado entre invocaciones.
type WebhookIngestor struct {
	publisher domain.QueuePublisher
	tagger    *CorrelationTagger
	secret    string
	metrics   Metrics
	log       *zap.Logger
}

func NewWebhookIngestor(
	publisher domain.QueuePublisher,
	tagger *CorrelationTagger,
	secret string,
	metrics Metrics,
	log *zap.Logger,
) *WebhookIngestor {
	if tagger == nil {
		tagger = NewCorrelationTagger(nil)
	}
	return &WebhookIngestor{
		publisher: publisher,
		tagger:    tagger,
		secret:    secret,
		metrics:   metricsOrNoop(metrics),
		log:       log,
	}
}

// Handle procesa una petición y siempre produce una respuesta.
func (s *WebhookIngestor) Handle(ctx context.Context, req WebhookRequest) WebhookResponse {
	resp := s.handle(ctx, req)
	s.metrics.WebhookHandled(resp.StatusCode)
	return resp
}

func (s *WebhookIngestor) handle(ctx context.Context, req WebhookRequest) WebhookResponse {
	if req.ReadErr != nil {
		correlationID := s.tagger.NewID()
		s.logReceipt(correlationID, req)
		return s.fail("webhook body unreadable", correlationID, "", classify(domain.ErrMalformedPayload, req.ReadErr))
	}

	payload, err := domain.ParseInboundPayload(req.Body)
	if err != nil {
		return s.fail("webhook payload malformed", "", "", err)
	}

	correlationID := s.tagger.Tag(payload)
	s.logReceipt(correlationID, req)

	if s.secret == "" {
		return s.fail("webhook secret not configured", correlationID, payload.OrderID, domain.ErrSecretNotConfigured)
	}

	if !VerifySignature(req.Headers.Get(SignatureHeader), s.secret) {
		// Tráfico hostil o mal configurado: rechazo, no fallo.
		s.log.Warn("webhook signature rejected", zap.String(errlog.CorrelationIDKey, correlationID))
		return WebhookResponse{
			StatusCode: http.StatusUnauthorized,
			State:      StateRejected,
			Body:       WebhookResponseBody{Message: MessageUnauthorized},
		}
	}

	if err := payload.Validate(); err != nil {
		return s.fail("webhook payload malformed", correlationID, "", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return s.fail("webhook payload malformed", correlationID, payload.OrderID, classify(domain.ErrMalformedPayload, err))
	}

	if err := s.publisher.Publish(ctx, payload.OrderID, body); err != nil {
		return s.fail("webhook enqueue failed", correlationID, payload.OrderID, classify(domain.ErrQueuePublish, err))
	}

	s.log.Info("webhook enqueued",
		zap.String(errlog.CorrelationIDKey, correlationID),
		zap.String(errlog.OrderIDKey, payload.OrderID),
	)

	return WebhookResponse{
		StatusCode: http.StatusOK,
		State:      StateAcknowledged,
		Body:       WebhookResponseBody{Message: MessageQueued, UUID: correlationID},
	}
}

func (s *WebhookIngestor) fail(msg, correlationID, orderID string, err error) WebhookResponse {
	errlog.Log(s.log, msg, errlog.New(ingestComponent, correlationID, orderID, err))
	return WebhookResponse{
		StatusCode: http.StatusInternalServerError,
		State:      StateFailed,
		Body: WebhookResponseBody{
			Message: MessageInternal,
			Error:   err.Error(),
			UUID:    correlationID,
			OrderID: orderID,
		},
	}
}

// logReceipt es el único registro síncrono de "algo llegó": se emite antes de cualquier validación.
func (s *WebhookIngestor) logReceipt(correlationID string, req WebhookRequest) {
	s.log.Info("webhook received",
		zap.String(errlog.CorrelationIDKey, correlationID),
		zap.ByteString("payload", req.Body),
		zap.Any("headers", redactHeaders(req.Headers)),
	)
}

// redactHeaders aplana las cabeceras para el log sin exponer el token de firma.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if strings.EqualFold(k, SignatureHeader) {
			out[k] = "[redacted]"
			continue
		}
		out[k] = strings.Join(v, ",")
	}
	return out
}
