package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionCookieName holds the access token set by the OAuth callback.
const SessionCookieName = "sb-access-token"

// AccessToken returns the bearer token, falling back to the session cookie.
func AccessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware verifies the access token and loads the caller's role from
// their profile. A valid token without a profile yet is treated as a plain
// user; the profile is provisioned on first onboarding read.
func AuthMiddleware(verifier domain.TokenVerifier, profiles domain.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or session cookie required", nil)
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if errors.Is(err, domain.ErrKeysUnavailable) {
			logger.Log.Error("Token verification unavailable", "error", err)
			response.Error(c, http.StatusServiceUnavailable, "Authentication is temporarily unavailable", nil)
			c.Abort()
			return
		}
		if err != nil {
			logger.Log.Debug("Token validation failed", "error", err)
			response.Error(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		// We do NOT rely on the JWT role claim; Supabase sets it to 'authenticated'
		role := domain.RoleUser
		profile, err := profiles.GetByID(c.Request.Context(), claims.UserID)
		switch {
		case err == nil && profile.Role != "":
			role = profile.Role
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			logger.Log.Error("Failed to load profile role", "user_id", claims.UserID, "error", err)
			response.Error(c, http.StatusInternalServerError, "Failed to load account", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserID), claims.UserID)
		c.Set(string(domain.KeyUserEmail), claims.Email)
		c.Set(string(domain.KeyUserRole), role)

		ctx := context.WithValue(c.Request.Context(), domain.KeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, domain.KeyUserEmail, claims.Email)
		ctx = context.WithValue(ctx, domain.KeyUserRole, role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole rejects callers whose role (set by AuthMiddleware) differs.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(string(domain.KeyUserRole)) != role {
			response.Error(c, http.StatusForbidden, "Access denied", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
