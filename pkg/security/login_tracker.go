package security

import (
	"context"
	"fmt"
	"sync"
	"time"
	"ura-backend/pkg/audit"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before a block
	AttemptWindow time.Duration // window the failures are counted in
	BlockDuration time.Duration
	UseIPTracking bool // also count and block by client IP
}

// DefaultLoginTrackerConfig returns sensible defaults
func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UseIPTracking: true,
	}
}

// Redis key patterns
const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// KEYS[1] = counter key, ARGV[1] = TTL in seconds. Returns the new count.
var incrWithTTLScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

type counter struct {
	count   int
	resetAt time.Time
}

// LoginTracker counts failed password sign-ins and blocks the email (and IP)
// once MaxAttempts is reached. Without Redis the counters live in process.
type LoginTracker struct {
	config LoginTrackerConfig
	client *goredis.Client
	audit  *audit.Logger
	now    func() time.Time

	mu       sync.Mutex
	failures map[string]*counter
	blocks   map[string]time.Time
}

func NewLoginTracker(config LoginTrackerConfig, client *goredis.Client, auditLog *audit.Logger) *LoginTracker {
	return &LoginTracker{
		config:   config,
		client:   client,
		audit:    auditLog,
		now:      time.Now,
		failures: make(map[string]*counter),
		blocks:   make(map[string]time.Time),
	}
}

// IsBlocked checks if the given email or IP is currently blocked
func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	keys := []string{blockedLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		for _, key := range keys {
			if until, ok := lt.blocks[key]; ok {
				if lt.now().Before(until) {
					return true, nil
				}
				delete(lt.blocks, key)
			}
		}
		return false, nil
	}

	exists, err := lt.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check login block: %w", err)
	}
	return exists > 0, nil
}

// RecordFailedAttempt counts a failure and blocks once the limit is reached.
// Returns (blocked, attempts, error).
func (lt *LoginTracker) RecordFailedAttempt(ctx context.Context, email, ip, requestID string) (bool, int, error) {
	userCount, err := lt.increment(ctx, failLoginUserPrefix+email)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment user counter: %w", err)
	}

	if lt.config.UseIPTracking && ip != "" {
		_, _ = lt.increment(ctx, failLoginIPPrefix+ip) // Best effort
	}

	if userCount < lt.config.MaxAttempts {
		return false, userCount, nil
	}

	if err := lt.createBlock(ctx, email, ip); err != nil {
		return true, userCount, fmt.Errorf("failed to create block: %w", err)
	}
	lt.audit.LoginBlocked(ctx, email, ip, requestID, lt.config.BlockDuration)
	return true, userCount, nil
}

// ClearAttempts clears failed login attempts on successful login
func (lt *LoginTracker) ClearAttempts(ctx context.Context, email, ip string) error {
	keys := []string{failLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, failLoginIPPrefix+ip)
	}

	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		for _, key := range keys {
			delete(lt.failures, key)
		}
		return nil
	}

	if err := lt.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

func (lt *LoginTracker) increment(ctx context.Context, key string) (int, error) {
	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		now := lt.now()
		c, ok := lt.failures[key]
		if !ok || now.After(c.resetAt) {
			c = &counter{resetAt: now.Add(lt.config.AttemptWindow)}
			lt.failures[key] = c
		}
		c.count++
		return c.count, nil
	}

	count, err := incrWithTTLScript.Run(ctx, lt.client, []string{key}, int(lt.config.AttemptWindow.Seconds())).Int()
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (lt *LoginTracker) createBlock(ctx context.Context, email, ip string) error {
	keys := []string{blockedLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		until := lt.now().Add(lt.config.BlockDuration)
		for _, key := range keys {
			lt.blocks[key] = until
		}
		return nil
	}

	pipe := lt.client.TxPipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, "1", lt.config.BlockDuration)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Sweep drops expired in-memory counters and blocks.
func (lt *LoginTracker) Sweep() {
	now := lt.now()

	lt.mu.Lock()
	defer lt.mu.Unlock()
	for key, c := range lt.failures {
		if now.After(c.resetAt) {
			delete(lt.failures, key)
		}
	}
	for key, until := range lt.blocks {
		if !now.Before(until) {
			delete(lt.blocks, key)
		}
	}
}
