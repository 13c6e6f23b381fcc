package v1

import (
	"net/http"
	"time"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthUC    domain.HealthUsecase
	environment string
	now         func() time.Time
}

// NewHealthHandler mounts the dependency health check on v1 and the plain
// serverless probes on api.
func NewHealthHandler(v1, api *gin.RouterGroup, healthUC domain.HealthUsecase, environment string) {
	handler := &HealthHandler{
		healthUC:    healthUC,
		environment: environment,
		now:         time.Now,
	}

	v1.GET("/health", handler.Health)

	api.GET("", handler.Welcome)
	api.GET("/health", handler.Liveness)
	api.GET("/hello", handler.Hello)
}

// Health godoc
// @Summary      Health check
// @Description  Probes the database and optional backends
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	checks, healthy := h.healthUC.Check(c.Request.Context())
	if !healthy {
		response.Error(c, http.StatusServiceUnavailable, "System degraded", checks)
		return
	}
	response.Success(c, http.StatusOK, "System operational", checks)
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"environment": h.environment,
		"timestamp":   h.timestamp(),
	})
}

func (h *HealthHandler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Hello from URA!",
		"timestamp": h.timestamp(),
	})
}

func (h *HealthHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to URA API"})
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
