package main

import (
	"context"
	"errors"
	"net/http"
	"time"
	"ura-backend/internal/delivery/http/middleware"
	v1 "ura-backend/internal/delivery/http/v1"
	"ura-backend/internal/domain"
	"ura-backend/internal/events"
	"ura-backend/internal/guard"
	"ura-backend/internal/repository/postgres"
	"ura-backend/internal/usecase"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/auth"
	"ura-backend/pkg/database"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/redis"
	"ura-backend/pkg/security"
	"ura-backend/pkg/storage"
	"ura-backend/pkg/supabase"
	"ura-backend/pkg/validation"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout    = 5 * time.Second
	rateLimitSweepTick = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// redisPinger adapts the go-redis command API to domain.Pinger.
type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func runServe(ctx context.Context) error {
	logger.Log.Info("Starting URA backend", "port", cfg.Port, "env", cfg.Env)

	// 1. Audit log
	auditLog := audit.New("ura-backend", cfg.Env)
	defer func() { _ = auditLog.Sync() }()

	// 2. Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	health := map[string]domain.Pinger{"database": dbPool, "redis": nil, "storage": nil}

	// 3. Optional backends
	var redisClient *goredis.Client
	redisClient, err = redis.Connect(ctx, redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword})
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		logger.Log.Warn("Redis not configured - rate limits are kept in memory")
	case err != nil:
		logger.Log.Warn("Redis unavailable - rate limits are kept in memory", "error", err)
		redisClient = nil
	default:
		defer redisClient.Close()
		health["redis"] = redisPinger{client: redisClient}
	}

	var objects domain.ObjectStorage
	if cfg.StorageConfigured() {
		bucket, err := storage.NewS3Bucket(ctx, storage.Config{
			ProjectURL:      cfg.SupabaseUrl,
			AccessKeyID:     cfg.StorageS3AccessKey,
			SecretAccessKey: cfg.StorageS3SecretKey,
			Region:          cfg.StorageS3Region,
			Bucket:          cfg.AvatarBucket,
		})
		if err != nil {
			logger.Log.Warn("Avatar storage unavailable", "error", err)
		} else {
			objects = bucket
			health["storage"] = bucket
		}
	} else {
		logger.Log.Warn("Storage not configured - avatar uploads are disabled")
	}

	// 4. Auth
	verifier := auth.NewVerifier(cfg.SupabaseJWTSecret, auth.NewProvider(cfg.SupabaseUrl+"/auth/v1/.well-known/jwks.json"))
	authProvider := supabase.NewClient(cfg.SupabaseUrl, cfg.SupabaseKey)

	policy, err := guard.Load(cfg.GuardPolicyFile)
	if err != nil {
		return err
	}

	// 5. Repositories
	regRepo := postgres.NewRegistrationRepository(dbPool)
	referralRepo := postgres.NewReferralRepository(dbPool)
	profileRepo := postgres.NewProfileRepository(dbPool)
	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool)

	// 6. Events
	bus := events.NewBroadcaster()
	unsubscribe := bus.Subscribe(func(evt domain.CompletionEvent) {
		auditLog.Log(context.Background(), audit.Event{
			Timestamp:    evt.CompletedAt,
			Event:        audit.EventOnboardingCompleted,
			SubjectType:  "user_id",
			SubjectValue: evt.UserID,
		})
	})
	defer unsubscribe()

	// 7. UseCases
	validate := validation.New()
	referralUC := usecase.NewReferralUsecase(regRepo, referralRepo)
	registrationUC := usecase.NewRegistrationUsecase(regRepo, referralUC, validate, auditLog)
	leaderboardUC := usecase.NewLeaderboardUsecase(referralRepo, cfg.LeaderboardLimit)
	onboardingUC := usecase.NewOnboardingUsecase(profileRepo, bus, validate)
	profileUC := usecase.NewProfileUsecase(profileRepo, objects, validate, cfg.AvatarMaxBytes)
	apiKeyUC := usecase.NewAPIKeyUsecase(apiKeyRepo, validate)
	authUC := usecase.NewAuthUsecase(authProvider, onboardingUC, validate, cfg.SiteURL)
	adminUC := usecase.NewAdminUsecase(regRepo, auditLog)
	healthUC := usecase.NewHealthUsecase(health)

	// 8. Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, auditLog)
	tracker := security.NewLoginTracker(security.DefaultLoginTrackerConfig(), redisClient, auditLog)
	go sweep(ctx, rateLimitSweepTick, limiter.Sweep, tracker.Sweep)

	// 9. Router
	router := v1.NewRouter(v1.RouterDeps{
		RegistrationUC: registrationUC,
		ReferralUC:     referralUC,
		LeaderboardUC:  leaderboardUC,
		OnboardingUC:   onboardingUC,
		ProfileUC:      profileUC,
		APIKeyUC:       apiKeyUC,
		AuthUC:         authUC,
		AdminUC:        adminUC,
		HealthUC:       healthUC,
		CompletionBus:  bus,
		ProfileRepo:    profileRepo,
		Verifier:       verifier,
		GuardPolicy:    policy,
		RateLimiter:    limiter,
		LoginTracker:   tracker,
		Audit:          auditLog,
		Config:         cfg,
	})

	// 10. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful Shutdown
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
	return nil
}

// sweep runs each cleanup every interval until ctx is done.
func sweep(ctx context.Context, interval time.Duration, cleanups ...func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, cleanup := range cleanups {
				cleanup()
			}
		}
	}
}
