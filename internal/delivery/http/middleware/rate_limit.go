package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
	"ura-backend/internal/delivery/http/response"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for one rate-limited scope
type RateLimitConfig struct {
	// Scope names the limit in keys and audit events ("global", "login", ...)
	Scope  string
	Limit  int
	Window time.Duration
	// KeyFunc extracts the caller key (default: client IP)
	KeyFunc func(*gin.Context) string
	// FailClosed rejects requests when Redis errors instead of using memory
	FailClosed bool
}

// Atomic increment with TTL on first hit.
// KEYS[1] = counter key, ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
var rateLimitScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`)

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests in Redis when a client is configured and in
// process memory otherwise.
type RateLimiter struct {
	client *goredis.Client
	audit  *audit.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

// NewRateLimiter accepts a nil client for memory-only limiting.
func NewRateLimiter(client *goredis.Client, auditLog *audit.Logger) *RateLimiter {
	return &RateLimiter{
		client:  client,
		audit:   auditLog,
		now:     time.Now,
		entries: make(map[string]*rateLimitEntry),
	}
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// GlobalRateLimitConfig applies to every API route.
func GlobalRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{Scope: "global", Limit: limit, Window: window, KeyFunc: clientIPKey}
}

// RegistrationRateLimitConfig throttles beta form submissions per IP.
func RegistrationRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{Scope: "registration", Limit: limit, Window: window, KeyFunc: clientIPKey}
}

// LoginRateLimitConfig returns strict config specifically for password sign-in
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope:      "login",
		Limit:      5,
		Window:     time.Minute,
		KeyFunc:    clientIPKey,
		FailClosed: true,
	}
}

// UploadRateLimitConfig returns config for avatar uploads
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "upload", Limit: 10, Window: time.Minute, KeyFunc: clientIPKey}
}

// Middleware enforces cfg. Headers follow the X-RateLimit-* convention.
func (l *RateLimiter) Middleware(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIPKey
	}

	return func(c *gin.Context) {
		key := "rl:" + cfg.Scope + ":" + cfg.KeyFunc(c)

		var count int
		var resetAt time.Time
		if l.client != nil {
			var err error
			count, resetAt, err = l.countRedis(c.Request.Context(), key, cfg)
			if err != nil {
				logger.Log.Warn("Rate limit store unavailable", "scope", cfg.Scope, "error", err)
				if cfg.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
				count, resetAt = l.countMemory(key, cfg)
			}
		} else {
			count, resetAt = l.countMemory(key, cfg)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		if count > cfg.Limit {
			retryAfter := int(resetAt.Sub(l.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			l.audit.RateLimitTriggered(c.Request.Context(), c.ClientIP(), requestID(c), cfg.Scope)

			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(cfg.Limit-count, 0)))
		c.Next()
	}
}

func (l *RateLimiter) countRedis(ctx context.Context, key string, cfg RateLimitConfig) (int, time.Time, error) {
	ttlSeconds := int(cfg.Window.Seconds())

	result, err := rateLimitScript.Run(ctx, l.client, []string{key}, ttlSeconds).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}
	if len(result) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result %v", result)
	}

	return int(result[0]), l.now().Add(time.Duration(result[1]) * time.Second), nil
}

func (l *RateLimiter) countMemory(key string, cfg RateLimitConfig) (int, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &rateLimitEntry{resetAt: now.Add(cfg.Window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt
}

// Sweep drops expired in-memory counters.
func (l *RateLimiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if now.After(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}
