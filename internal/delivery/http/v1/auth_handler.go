package v1

import (
	"errors"
	"net/http"
	"time"
	"ura-backend/internal/delivery/http/middleware"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	// PKCECookieName carries the code verifier from /oauth/:provider to the callback.
	PKCECookieName  = "ura-pkce-verifier"
	pkceCookieTTL   = 10 * time.Minute
	authFailedPath  = "/?error=auth-failed"
	defaultTokenTTL = time.Hour
)

type AuthHandler struct {
	authUC        domain.AuthUsecase
	tracker       *security.LoginTracker
	audit         *audit.Logger
	secureCookies bool
}

func NewAuthHandler(site gin.IRoutes, public, protected *gin.RouterGroup, authUC domain.AuthUsecase, tracker *security.LoginTracker, auditLog *audit.Logger, secureCookies bool, loginLimit gin.HandlerFunc) {
	handler := &AuthHandler{
		authUC:        authUC,
		tracker:       tracker,
		audit:         auditLog,
		secureCookies: secureCookies,
	}

	site.GET("/auth/callback", handler.Callback)

	// Public Routes
	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/signup", loginLimit, handler.SignUp)
		publicAuth.POST("/login", loginLimit, handler.Login)
		publicAuth.POST("/logout", handler.Logout)
		publicAuth.GET("/oauth/:provider", handler.OAuth)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

// SignUp godoc
// @Summary      Create an account
// @Description  Sign up with email and password. When email confirmation is on, no session is returned until the link is followed.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SignUpRequest  true  "Credentials"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	session, err := h.authUC.SignUp(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	h.audit.Log(c.Request.Context(), audit.Event{
		Event:        audit.EventSignUp,
		SubjectType:  "email",
		SubjectValue: audit.MaskEmail(domain.NormalizeEmail(req.Email)),
		IP:           c.ClientIP(),
		RequestID:    c.GetString(string(domain.KeyRequestID)),
	})

	if session == nil {
		response.Success(c, http.StatusCreated, "Check your email to confirm your account", gin.H{"confirmation_required": true})
		return
	}
	h.setSessionCookie(c, session)
	response.Success(c, http.StatusCreated, "Account created", gin.H{"confirmation_required": false, "session": session})
}

// Login godoc
// @Summary      User Login
// @Description  Sign in with email and password. Sets the session cookie and returns the profile.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	ctx := c.Request.Context()
	email := domain.NormalizeEmail(req.Email)
	ip := c.ClientIP()
	requestID := c.GetString(string(domain.KeyRequestID))

	blocked, err := h.tracker.IsBlocked(ctx, email, ip)
	if err != nil {
		// fail open: the login rate limit still applies
		logger.Log.Warn("Login tracker unavailable", "error", err)
	}
	if blocked {
		c.Error(apperror.TooManyRequests("Too many failed sign-in attempts. Please try again later."))
		return
	}

	session, profile, err := h.authUC.SignIn(ctx, &req)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindAuthFailure && errors.Is(err, domain.ErrAuthRejected) {
			h.audit.SignInFailed(ctx, email, ip, requestID, err.Error())
			if _, _, trackErr := h.tracker.RecordFailedAttempt(ctx, email, ip, requestID); trackErr != nil {
				logger.Log.Warn("Failed to record sign-in failure", "error", trackErr)
			}
		}
		c.Error(err)
		return
	}
	if err := h.tracker.ClearAttempts(ctx, email, ip); err != nil {
		logger.Log.Warn("Failed to clear sign-in failures", "error", err)
	}

	h.audit.Log(ctx, audit.Event{
		Event:        audit.EventSignInSuccess,
		SubjectType:  "user_id",
		SubjectValue: session.User.ID,
		IP:           ip,
		RequestID:    requestID,
	})

	h.setSessionCookie(c, session)
	response.Success(c, http.StatusOK, "Login successful", gin.H{"session": session, "profile": profile})
}

// Logout godoc
// @Summary      Sign out
// @Description  Revoke the session and clear the session cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authUC.SignOut(c.Request.Context(), middleware.AccessToken(c))
	h.clearCookie(c, middleware.SessionCookieName)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// OAuth godoc
// @Summary      Start OAuth sign-in
// @Description  Redirect to the identity provider with a PKCE challenge
// @Tags         auth
// @Param        provider  path  string  true  "Provider (google)"
// @Success      302
// @Failure      400  {object}  response.Response
// @Router       /auth/oauth/{provider} [get]
func (h *AuthHandler) OAuth(c *gin.Context) {
	start, err := h.authUC.BeginOAuth(c.Param("provider"))
	if err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(PKCECookieName, start.CodeVerifier, int(pkceCookieTTL.Seconds()), "/", "", h.secureCookies, true)
	c.Redirect(http.StatusFound, start.URL)
}

// Callback finishes the OAuth flow: a missing code is a client error, every
// other failure lands the browser on the home page with an error flag.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Error(c, http.StatusBadRequest, "No code provided", nil)
		return
	}

	verifier, _ := c.Cookie(PKCECookieName)
	h.clearCookie(c, PKCECookieName)

	session, location, err := h.authUC.HandleCallback(c.Request.Context(), code, verifier)
	if err != nil {
		logger.Log.Warn("OAuth callback failed", "error", err)
		h.audit.Log(c.Request.Context(), audit.Event{
			Event:     audit.EventOAuthCallbackFailed,
			IP:        c.ClientIP(),
			RequestID: c.GetString(string(domain.KeyRequestID)),
			Details:   map[string]interface{}{"kind": string(apperror.KindOf(err))},
		})
		c.Redirect(http.StatusFound, authFailedPath)
		return
	}

	h.setSessionCookie(c, session)
	c.Redirect(http.StatusFound, location)
}

// Me godoc
// @Summary      Get current user
// @Description  Profile of the authenticated caller, created on first access
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Profile}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	email := c.GetString(string(domain.KeyUserEmail))

	profile, err := h.authUC.Me(c.Request.Context(), userID, email)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User retrieved", profile)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, session *domain.Session) {
	maxAge := session.ExpiresIn
	if maxAge <= 0 {
		maxAge = int(defaultTokenTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, session.AccessToken, maxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookies, true)
}
