package v1

import (
	"net/http"
	"net/url"
	"time"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	referralCookieMaxAge = 30 * 24 * time.Hour
	betaRegistrationPath = "/betaregistrations"
)

type ReferralHandler struct {
	referralUC    domain.ReferralUsecase
	leaderboardUC domain.LeaderboardUsecase
	secureCookies bool
}

// NewReferralHandler mounts the API routes on public and the shareable
// /join/:email link on site.
func NewReferralHandler(site gin.IRoutes, public *gin.RouterGroup, referralUC domain.ReferralUsecase, leaderboardUC domain.LeaderboardUsecase, secureCookies bool) {
	handler := &ReferralHandler{
		referralUC:    referralUC,
		leaderboardUC: leaderboardUC,
		secureCookies: secureCookies,
	}

	site.GET("/join/:email", handler.Join)

	referrals := public.Group("/referrals")
	{
		referrals.GET("/stats", handler.Stats)
		referrals.GET("/resolve", handler.Resolve)
	}
	public.GET("/leaderboard", handler.Leaderboard)
}

// Join caches the referrer in a cookie and sends the visitor to the beta
// form. Unknown referrers are dropped silently.
func (h *ReferralHandler) Join(c *gin.Context) {
	target := betaRegistrationPath

	email, ok, err := h.referralUC.ResolveReferrer(c.Request.Context(), c.Param("email"))
	if err == nil && ok {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(ReferralCookieName, email, int(referralCookieMaxAge.Seconds()), "/", "", h.secureCookies, true)
		target += "?ref=" + url.QueryEscape(email)
	}
	c.Redirect(http.StatusFound, target)
}

// Stats godoc
// @Summary      Referral stats
// @Description  Count the referrals attributed to an email
// @Tags         referrals
// @Produce      json
// @Param        email  query     string  true  "Referrer email"
// @Success      200    {object}  response.Response{data=domain.ReferralStats}
// @Failure      400    {object}  response.Response
// @Router       /referrals/stats [get]
func (h *ReferralHandler) Stats(c *gin.Context) {
	stats, err := h.referralUC.Stats(c.Request.Context(), c.Query("email"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Referral stats retrieved", stats)
}

// Resolve godoc
// @Summary      Resolve a referrer
// @Description  Check whether a referral identifier belongs to a registered email
// @Tags         referrals
// @Produce      json
// @Param        ref  query     string  true  "Referral identifier"
// @Success      200  {object}  response.Response
// @Router       /referrals/resolve [get]
func (h *ReferralHandler) Resolve(c *gin.Context) {
	email, ok, err := h.referralUC.ResolveReferrer(c.Request.Context(), c.Query("ref"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Referrer resolved", gin.H{"valid": ok, "email": email})
}

// Leaderboard godoc
// @Summary      Referral leaderboard
// @Description  Referrers ranked by completed referrals, recomputed on every call
// @Tags         referrals
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.LeaderboardEntry}
// @Failure      500  {object}  response.Response
// @Router       /leaderboard [get]
func (h *ReferralHandler) Leaderboard(c *gin.Context) {
	entries, err := h.leaderboardUC.Compute(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.Success(c, http.StatusOK, "Leaderboard retrieved", entries)
}
