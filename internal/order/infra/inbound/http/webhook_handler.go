package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/orderflow/internal/order/application"
	"github.com/davicafu/orderflow/pkg/utils"
)

// MaxBodyBytes limita el tamaño del payload del webhook.
const MaxBodyBytes = 1 << 20

// WebhookHandler traduce la petición gin al caso de uso de ingesta.
type WebhookHandler struct {
	ingestor *application.WebhookIngestor
	log      *zap.Logger
}

func NewWebhookHandler(ingestor *application.WebhookIngestor, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor, log: log}
}

// ReceiveWebhook endpoint POST /webhook
func (h *WebhookHandler) ReceiveWebhook(c *gin.Context) {
	// Un cuerpo ilegible también pasa por el caso de uso: recibe uuid y ErrorLogRecord.
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))

	resp := h.ingestor.Handle(c.Request.Context(), application.WebhookRequest{
		Headers: c.Request.Header,
		Body:    body,
		ReadErr: err,
	})
	utils.SendJSON(c, resp.StatusCode, resp.Body)
}
