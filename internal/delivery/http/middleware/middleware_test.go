package middleware_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"ura-backend/internal/delivery/http/middleware"
	"ura-backend/internal/domain"
	"ura-backend/internal/guard"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]*domain.Claims

func (s stubVerifier) Verify(token string) (*domain.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// stubProfiles implements only GetByID; the embedded nil interface covers
// the rest of the repository.
type stubProfiles struct {
	domain.ProfileRepository
	byID map[string]*domain.Profile
	err  error
}

func (s *stubProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

type stubOnboarding struct {
	domain.OnboardingUsecase
	complete map[string]bool
	err      error
}

func (s *stubOnboarding) IsSetupComplete(_ context.Context, userID string) (bool, error) {
	return s.complete[userID], s.err
}

// keysDownVerifier verifies RS256 tokens against a key endpoint that refuses
// connections, and returns a token it would otherwise accept.
func keysDownVerifier(t *testing.T) (*auth.Verifier, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "old",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return auth.NewVerifier("", auth.NewProvider(url)), signed
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Error     json.RawMessage `json:"error"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/x", func(c *gin.Context) {
		fromCtx, _ := c.Request.Context().Value(domain.KeyRequestID).(string)
		c.String(http.StatusOK, fromCtx)
	})

	t.Run("Should mint an ID when none is sent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		id := w.Header().Get(middleware.RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("Should keep a well-formed incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(middleware.RequestIDHeader, "edge-abc_123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "edge-abc_123", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("Should replace a malformed incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(middleware.RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, "<script>", w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := stubVerifier{
		"user-token":  {UserID: "u1", Email: "ada@example.com"},
		"admin-token": {UserID: "a1", Email: "root@example.com"},
	}
	profiles := &stubProfiles{byID: map[string]*domain.Profile{
		"a1": {ID: "a1", Role: domain.RoleAdmin},
	}}

	r := gin.New()
	r.Use(middleware.RequestID())
	authed := r.Group("/", middleware.AuthMiddleware(verifier, profiles))
	authed.GET("/me", func(c *gin.Context) {
		ctxRole, _ := c.Request.Context().Value(domain.KeyUserRole).(string)
		c.JSON(http.StatusOK, gin.H{
			"id":       c.GetString(string(domain.KeyUserID)),
			"role":     c.GetString(string(domain.KeyUserRole)),
			"ctx_role": ctxRole,
		})
	})
	authed.GET("/admin", middleware.RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		bearer string
		cookie string
		status int
		role   string
	}{
		{"no credentials", "/me", "", "", http.StatusUnauthorized, ""},
		{"bad token", "/me", "nope", "", http.StatusUnauthorized, ""},
		{"bearer without profile defaults to user", "/me", "user-token", "", http.StatusOK, domain.RoleUser},
		{"session cookie", "/me", "", "admin-token", http.StatusOK, domain.RoleAdmin},
		{"admin route as user", "/admin", "user-token", "", http.StatusForbidden, ""},
		{"admin route as admin", "/admin", "admin-token", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.role != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.role, body["role"])
				assert.Equal(t, tt.role, body["ctx_role"])
			}
		})
	}

	t.Run("Should fail when the role lookup errors", func(t *testing.T) {
		r := gin.New()
		r.GET("/me", middleware.AuthMiddleware(verifier, &stubProfiles{err: errors.New("db down")}), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuthMiddlewareKeysUnavailable(t *testing.T) {
	verifier, token := keysDownVerifier(t)

	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(verifier, &stubProfiles{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperror.Validation("Please check the highlighted fields", []string{"Email is invalid"}))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation does not exist"))
	})

	t.Run("Should render app errors with details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.JSONEq(t, `["Email is invalid"]`, string(env.Error))
		assert.NotEmpty(t, env.RequestID)
	})

	t.Run("Should hide internal errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "relation")
	})
}

func TestRateLimiterMemory(t *testing.T) {
	limiter := middleware.NewRateLimiter(nil, audit.NewNop())

	r := gin.New()
	r.GET("/x", limiter.Middleware(middleware.RateLimitConfig{Scope: "test", Limit: 2, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/y", limiter.Middleware(middleware.RateLimitConfig{Scope: "other", Limit: 1, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different scope has its own counter.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/y", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouteGuard(t *testing.T) {
	policy, err := guard.Load("")
	require.NoError(t, err)

	verifier := stubVerifier{
		"fresh": {UserID: "new"},
		"done":  {UserID: "old"},
	}
	onboarding := &stubOnboarding{complete: map[string]bool{"old": true}}

	r := gin.New()
	r.NoRoute(middleware.RouteGuard(policy, verifier, onboarding, audit.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"public page", "/leaderboard", "", http.StatusOK, ""},
		{"asset", "/_next/static/app.js", "", http.StatusOK, ""},
		{"dashboard without session", "/dashboard", "", http.StatusFound, "/"},
		{"dashboard with invalid session", "/dashboard", "forged", http.StatusFound, "/"},
		{"dashboard before onboarding", "/dashboard", "fresh", http.StatusFound, "/onboarding"},
		{"nested settings before onboarding", "/settings/profile", "fresh", http.StatusFound, "/onboarding"},
		{"dashboard after onboarding", "/dashboard", "done", http.StatusOK, ""},
		{"onboarding needs only a session", "/onboarding", "fresh", http.StatusOK, ""},
		{"onboarding without session", "/onboarding", "", http.StatusFound, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}

	t.Run("Should let the request through when the status lookup fails", func(t *testing.T) {
		r := gin.New()
		failing := &stubOnboarding{err: errors.New("db down")}
		r.NoRoute(middleware.RouteGuard(policy, verifier, failing, audit.NewNop()), func(c *gin.Context) {
			c.String(http.StatusOK, "page")
		})
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "fresh"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should let the request through when the signing keys cannot be fetched", func(t *testing.T) {
		keysDown, token := keysDownVerifier(t)
		r := gin.New()
		r.NoRoute(middleware.RouteGuard(policy, keysDown, onboarding, audit.NewNop()), func(c *gin.Context) {
			c.String(http.StatusOK, "page")
		})
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
	})
}

func TestCSRFMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CSRFMiddleware(false))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	t.Run("Should skip requests without ambient credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Should reject a cookie session without the header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "abc"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should accept a matching header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "abc"})
		req.Header.Set(middleware.CSRFTokenHeaderName, "abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Should skip bearer requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok"})
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
