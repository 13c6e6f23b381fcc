package response

import (
	"net/http"
	"ura-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope every API route answers with.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: requestID(c),
	})
}

// Error writes a failure envelope. details is rendered under "error" and is
// omitted when nil.
func Error(c *gin.Context, code int, message string, details interface{}) {
	c.JSON(code, Response{
		Success:   false,
		Message:   message,
		Error:     details,
		RequestID: requestID(c),
	})
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// requestID reads the ID set by the RequestID middleware.
func requestID(c *gin.Context) string {
	return c.GetString(string(domain.KeyRequestID))
}
