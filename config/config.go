package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DBUrl       string
	SupabaseUrl string
	SupabaseKey string
	// HS256 secret; RS256 tokens are checked against the project's JWKS instead.
	SupabaseJWTSecret string
	SiteURL           string
	StaticDir         string
	GuardPolicyFile   string
	// Object storage (Supabase Storage S3 endpoint)
	AvatarBucket       string
	AvatarMaxBytes     int64
	StorageS3AccessKey string
	StorageS3SecretKey string
	StorageS3Region    string
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds         int
	RateLimitGlobalThreshold       int
	RateLimitRegistrationThreshold int
	CORSAllowedOrigins             []string
	LeaderboardLimit               int
}

func LoadConfig() (*Config, error) {
	// .env is optional; production injects real environment variables
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		SupabaseUrl: strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey: getEnv("SUPABASE_ANON_KEY", getEnv("SUPABASE_KEY", "")),
		// Token verification and site routing
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		SiteURL:           strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		StaticDir:         getEnv("STATIC_DIR", ""),
		GuardPolicyFile:   getEnv("GUARD_POLICY_FILE", ""),
		// Avatars
		AvatarBucket:       getEnv("AVATAR_BUCKET", "avatars"),
		AvatarMaxBytes:     int64(getEnvInt("AVATAR_MAX_BYTES", 5*1024*1024)),
		StorageS3AccessKey: getEnv("STORAGE_S3_ACCESS_KEY_ID", ""),
		StorageS3SecretKey: getEnv("STORAGE_S3_SECRET_ACCESS_KEY", ""),
		StorageS3Region:    getEnv("STORAGE_S3_REGION", "us-east-1"),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitWindowSeconds:         getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),         // 1 minute window
		RateLimitGlobalThreshold:       getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),      // 100 requests per window
		RateLimitRegistrationThreshold: getEnvInt("RATE_LIMIT_REGISTRATION_THRESHOLD", 10), // 10 sign-ups per window
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),
		LeaderboardLimit: getEnvInt("LEADERBOARD_LIMIT", 100),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.SupabaseUrl == "" || cfg.SupabaseKey == "" {
		log.Println("WARNING: SUPABASE_URL or SUPABASE_ANON_KEY missing. Auth endpoints will fail.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// IsProduction reports whether cookies must be Secure and debug output suppressed.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// StorageConfigured reports whether avatar uploads can reach object storage.
func (c *Config) StorageConfigured() bool {
	return c.SupabaseUrl != "" && c.StorageS3AccessKey != "" && c.StorageS3SecretKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
