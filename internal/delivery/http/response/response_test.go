package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, requestID string, write func(c *gin.Context)) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if requestID != "" {
		c.Set(string(domain.KeyRequestID), requestID)
	}
	write(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestEnvelope(t *testing.T) {
	t.Run("Should carry the request ID on success", func(t *testing.T) {
		code, body := render(t, "req-1", func(c *gin.Context) {
			response.Success(c, http.StatusCreated, "Created", gin.H{"email": "ada@example.com"})
		})

		assert.Equal(t, http.StatusCreated, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "req-1", body["request_id"])
		assert.NotContains(t, body, "error")
	})

	t.Run("Should omit empty details and request ID", func(t *testing.T) {
		code, body := render(t, "", func(c *gin.Context) {
			response.NotFound(c, "Page not found")
		})

		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Page not found", body["message"])
		assert.NotContains(t, body, "error")
		assert.NotContains(t, body, "request_id")
	})

	t.Run("Should render error details", func(t *testing.T) {
		_, body := render(t, "req-2", func(c *gin.Context) {
			response.Error(c, http.StatusBadRequest, "Please check the highlighted fields", []string{"Email is invalid"})
		})

		assert.Equal(t, []interface{}{"Email is invalid"}, body["error"])
		assert.Equal(t, "req-2", body["request_id"])
	})
}
