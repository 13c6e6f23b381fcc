package v1

import (
	"net/http"
	"strings"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ReferralCookieName caches the referrer seen on a /join link until the
// visitor submits the beta form.
const ReferralCookieName = "ura_ref"

type RegistrationHandler struct {
	regUC domain.RegistrationUsecase
}

func NewRegistrationHandler(public *gin.RouterGroup, regUC domain.RegistrationUsecase, limit gin.HandlerFunc) {
	handler := &RegistrationHandler{regUC: regUC}

	public.POST("/registrations", limit, handler.Submit)
}

// Submit godoc
// @Summary      Join the beta
// @Description  Register an email for the beta. Re-submitting a registered email is a welcome back, not an error. The referrer comes from the body, the ref query parameter or the ura_ref cookie, in that order.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SubmitRegistrationRequest  true  "Beta form"
// @Param        ref      query     string  false  "Referrer email"
// @Success      201      {object}  response.Response{data=domain.SubmitResult}
// @Success      200      {object}  response.Response{data=domain.SubmitResult}
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req domain.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	req.Ref = referralCandidate(c, req.Ref)

	result, err := h.regUC.Submit(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	if result.Outcome == domain.OutcomeWelcomeBack {
		response.Success(c, http.StatusOK, "Welcome back! You're already on the list.", result)
		return
	}
	response.Success(c, http.StatusCreated, "You're on the list!", result)
}

// referralCandidate prefers the explicit value over the cached cookie.
func referralCandidate(c *gin.Context, explicit string) string {
	if ref := strings.TrimSpace(explicit); ref != "" {
		return ref
	}
	if ref := strings.TrimSpace(c.Query("ref")); ref != "" {
		return ref
	}
	if ref, err := c.Cookie(ReferralCookieName); err == nil {
		return strings.TrimSpace(ref)
	}
	return ""
}
