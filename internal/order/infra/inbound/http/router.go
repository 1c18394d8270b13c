package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/orderflow/pkg/utils"
)

func RegisterOrderRoutes(r *gin.Engine, handler *WebhookHandler) {
	r.POST("/webhook", handler.ReceiveWebhook)
}

// RegisterOpsRoutes expone health y métricas. metrics puede ser nil.
func RegisterOpsRoutes(r *gin.Engine, metrics http.Handler) {
	r.GET("/health", func(c *gin.Context) {
		utils.SendJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	r.NoRoute(func(c *gin.Context) {
		utils.SendNotFound(c, "route not found")
	})
}
