package v1

import (
	"net/http"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	apiKeyUC domain.APIKeyUsecase
	audit    *audit.Logger
}

func NewAPIKeyHandler(r *gin.RouterGroup, apiKeyUC domain.APIKeyUsecase, auditLog *audit.Logger) {
	handler := &APIKeyHandler{apiKeyUC: apiKeyUC, audit: auditLog}

	keys := r.Group("/profile/me/api-keys")
	{
		keys.GET("", handler.List)
		keys.PUT("/:provider", handler.Save)
		keys.DELETE("/:provider", handler.Delete)
	}
}

// List godoc
// @Summary      List my API keys
// @Description  Saved keys are returned masked, with the built-in provider names
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /profile/me/api-keys [get]
// @Security     BearerAuth
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.apiKeyUC.List(c.Request.Context(), c.GetString(string(domain.KeyUserID)))
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, http.StatusOK, "API keys retrieved", gin.H{
		"keys":      keys,
		"providers": domain.DefaultAPIKeyProviders,
	})
}

// Save godoc
// @Summary      Save an API key
// @Description  Creates or replaces the key for one provider
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        provider  path      string                    true  "Provider name"
// @Param        request   body      domain.SaveAPIKeyRequest  true  "Key"
// @Success      200       {object}  response.Response{data=domain.APIKeySummary}
// @Failure      400       {object}  response.Response
// @Failure      401       {object}  response.Response
// @Router       /profile/me/api-keys/{provider} [put]
// @Security     BearerAuth
func (h *APIKeyHandler) Save(c *gin.Context) {
	var req domain.SaveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	req.Provider = c.Param("provider")

	userID := c.GetString(string(domain.KeyUserID))
	summary, err := h.apiKeyUC.Save(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	h.log(c, audit.EventAPIKeySaved, userID, summary.Provider)
	response.Success(c, http.StatusOK, "API key saved", summary)
}

// Delete godoc
// @Summary      Delete an API key
// @Tags         profile
// @Produce      json
// @Param        provider  path      string  true  "Provider name"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /profile/me/api-keys/{provider} [delete]
// @Security     BearerAuth
func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	provider := c.Param("provider")
	if err := h.apiKeyUC.Delete(c.Request.Context(), userID, provider); err != nil {
		c.Error(err)
		return
	}

	h.log(c, audit.EventAPIKeyDeleted, userID, provider)
	response.Success(c, http.StatusOK, "API key deleted", gin.H{"provider": provider})
}

func (h *APIKeyHandler) log(c *gin.Context, event audit.EventType, userID, provider string) {
	h.audit.Log(c.Request.Context(), audit.Event{
		Event:        event,
		SubjectType:  "user_id",
		SubjectValue: userID,
		IP:           c.ClientIP(),
		RequestID:    c.GetString(string(domain.KeyRequestID)),
		Details:      map[string]interface{}{"provider": provider},
	})
}
