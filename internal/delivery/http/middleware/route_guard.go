package middleware

import (
	"errors"
	"net/http"
	"ura-backend/internal/domain"
	"ura-backend/internal/guard"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RouteGuard redirects page requests per the guard policy. It never blocks on
// its own failures: a lookup error lets the request through.
func RouteGuard(policy *guard.Policy, verifier domain.TokenVerifier, onboardingUC domain.OnboardingUsecase, auditLog *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}
		path := c.Request.URL.Path

		var claims *domain.Claims
		if token := AccessToken(c); token != "" {
			verified, err := verifier.Verify(token)
			if errors.Is(err, domain.ErrKeysUnavailable) {
				logger.Log.Warn("Route guard could not verify session", "path", path, "error", err)
				c.Next()
				return
			}
			if err == nil {
				claims = verified
			}
		}

		decision := policy.Evaluate(path, claims != nil, func() (bool, error) {
			return onboardingUC.IsSetupComplete(c.Request.Context(), claims.UserID)
		})
		if decision.Action == guard.Allow {
			c.Next()
			return
		}

		subject := ""
		if claims != nil {
			subject = claims.UserID
		}
		logger.Log.Debug("Route guard redirect", "path", path, "action", decision.Action.String())
		auditLog.Log(c.Request.Context(), audit.Event{
			Event:        audit.EventRouteRedirect,
			SubjectType:  "user_id",
			SubjectValue: subject,
			IP:           c.ClientIP(),
			RequestID:    requestID(c),
			Details: map[string]interface{}{
				"path":     path,
				"action":   decision.Action.String(),
				"location": decision.Location,
			},
		})

		c.Redirect(http.StatusFound, decision.Location)
		c.Abort()
	}
}
