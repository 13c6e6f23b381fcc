package v1

import (
	"time"
	"ura-backend/config"
	"ura-backend/internal/delivery/http/middleware"
	"ura-backend/internal/delivery/http/site"
	"ura-backend/internal/domain"
	"ura-backend/internal/guard"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	RegistrationUC domain.RegistrationUsecase
	ReferralUC     domain.ReferralUsecase
	LeaderboardUC  domain.LeaderboardUsecase
	OnboardingUC   domain.OnboardingUsecase
	ProfileUC      domain.ProfileUsecase
	APIKeyUC       domain.APIKeyUsecase
	AuthUC         domain.AuthUsecase
	AdminUC        domain.AdminUsecase
	HealthUC       domain.HealthUsecase
	CompletionBus  domain.CompletionBus
	ProfileRepo    domain.ProfileRepository // role lookup for the auth middleware
	Verifier       domain.TokenVerifier
	GuardPolicy    *guard.Policy
	RateLimiter    *middleware.RateLimiter
	LoginTracker   *security.LoginTracker
	Audit          *audit.Logger
	Config         *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	production := cfg.IsProduction()
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	r := gin.New()

	// Global Middlewares
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeadersMiddleware(production))
	r.Use(middleware.ErrorHandler())

	globalLimit := deps.RateLimiter.Middleware(middleware.GlobalRateLimitConfig(cfg.RateLimitGlobalThreshold, window))
	registrationLimit := deps.RateLimiter.Middleware(middleware.RegistrationRateLimitConfig(cfg.RateLimitRegistrationThreshold, window))
	loginLimit := deps.RateLimiter.Middleware(middleware.LoginRateLimitConfig())
	uploadLimit := deps.RateLimiter.Middleware(middleware.UploadRateLimitConfig())

	v1 := r.Group("/v1")
	v1.Use(globalLimit)
	v1.Use(middleware.CSRFMiddleware(production))

	api := r.Group("/api")
	api.Use(globalLimit)

	// Health and serverless probes
	NewHealthHandler(v1, api, deps.HealthUC, cfg.Env)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	NewRegistrationHandler(v1, deps.RegistrationUC, registrationLimit)
	NewReferralHandler(r, v1, deps.ReferralUC, deps.LeaderboardUC, production)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Verifier, deps.ProfileRepo))
	{
		NewAuthHandler(r, v1, protected, deps.AuthUC, deps.LoginTracker, deps.Audit, production, loginLimit)
		NewOnboardingHandler(protected, deps.OnboardingUC, deps.CompletionBus)
		NewProfileHandler(protected, deps.ProfileUC, deps.Audit, uploadLimit)
		NewAPIKeyHandler(protected, deps.APIKeyUC, deps.Audit)
		NewAdminHandler(protected, deps.AdminUC, middleware.RequireRole(domain.RoleAdmin))
	}

	// Pages: everything the API does not claim goes through the route guard
	r.NoRoute(
		middleware.RouteGuard(deps.GuardPolicy, deps.Verifier, deps.OnboardingUC, deps.Audit),
		site.New(cfg.StaticDir).Serve,
	)

	return r
}
