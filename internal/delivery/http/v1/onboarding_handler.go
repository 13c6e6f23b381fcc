package v1

import (
	"io"
	"net/http"
	"strconv"
	"time"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const sseKeepAlive = 25 * time.Second

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
	bus          domain.CompletionBus
}

func NewOnboardingHandler(r *gin.RouterGroup, onboardingUC domain.OnboardingUsecase, bus domain.CompletionBus) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC, bus: bus}

	onboarding := r.Group("/onboarding")
	{
		onboarding.GET("/status", handler.GetStatus)
		onboarding.POST("/steps/:step", handler.CompleteStep)
		onboarding.POST("/complete", handler.Complete)
		onboarding.GET("/events", handler.Events)
	}
}

// GetStatus godoc
// @Summary      Get onboarding status
// @Description  Current wizard step and progress. A profile is created on first access.
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.OnboardingState}
// @Failure      401  {object}  response.Response
// @Router       /onboarding/status [get]
// @Security     BearerAuth
func (h *OnboardingHandler) GetStatus(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	email := c.GetString(string(domain.KeyUserEmail))

	state, err := h.onboardingUC.GetStatus(c.Request.Context(), userID, email)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding status retrieved", state)
}

// CompleteStep godoc
// @Summary      Save a wizard step
// @Description  Merge the step's answers into the stored payload and move to the next step
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        step     path      int                    true  "Step number (1-5)"
// @Param        request  body      domain.OnboardingData  true  "Step answers"
// @Success      200      {object}  response.Response{data=domain.OnboardingState}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /onboarding/steps/{step} [post]
// @Security     BearerAuth
func (h *OnboardingHandler) CompleteStep(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.Error(apperror.BadRequest("Step must be a number"))
		return
	}

	var data domain.OnboardingData
	if err := bindOptionalJSON(c, &data); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	state, err := h.onboardingUC.CompleteStep(c.Request.Context(), userID, step, data)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Step saved", state)
}

// Complete godoc
// @Summary      Complete onboarding wizard
// @Description  Submit the final answers and mark onboarding as complete. Repeating the call is harmless.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.OnboardingData  false  "Final answers"
// @Success      200      {object}  response.Response{data=domain.OnboardingState}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /onboarding/complete [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var data domain.OnboardingData
	if err := bindOptionalJSON(c, &data); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	state, err := h.onboardingUC.Complete(c.Request.Context(), userID, data)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding completed successfully", state)
}

// Events godoc
// @Summary      Onboarding completion stream
// @Description  Server-sent events; emits onboarding_completed once the caller finishes the wizard
// @Tags         onboarding
// @Produce      text/event-stream
// @Success      200
// @Router       /onboarding/events [get]
// @Security     BearerAuth
func (h *OnboardingHandler) Events(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	events := make(chan domain.CompletionEvent, 1)
	unsubscribe := h.bus.Subscribe(func(evt domain.CompletionEvent) {
		if evt.UserID != userID {
			return
		}
		select {
		case events <- evt:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt := <-events:
			c.SSEvent("onboarding_completed", evt)
			return false
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
