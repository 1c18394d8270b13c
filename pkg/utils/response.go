package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse es el cuerpo estándar de los errores que no produce el webhook.
type ErrorResponse struct {
	Message string `json:"message"`
}

// SendJSON escribe body tal cual, sin envoltorio.
// Los emisores del webhook esperan {message, uuid} en la raíz.
func SendJSON(c *gin.Context, statusCode int, body interface{}) {
	c.JSON(statusCode, body)
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Message: message})
}

// --- Helpers específicos para errores comunes ---

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}
