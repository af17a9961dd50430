// Package ratelimit throttles generation endpoints per client IP. Counters live in Redis
// when it is reachable and in process memory otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin   int           // requests per minute per IP
	BurstMultiplier int           // burst capacity as a multiple of the per-minute limit
	CleanupInterval time.Duration // how often idle in-memory limiters are dropped
}

// DefaultConfig returns the defaults used when RATE_LIMIT_PER_MIN is unset
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   30,
		BurstMultiplier: 1,
		CleanupInterval: 10 * time.Minute,
	}
}

// Rate is a limit of Limit events per Period
type Rate struct {
	Limit  int
	Period time.Duration
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackMu sync.Mutex
	fallback   map[string]*fallbackEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter. A nil or disabled Redis client selects the in-memory path.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	defaults := DefaultConfig()
	if config.IPLimitPerMin <= 0 {
		config.IPLimitPerMin = defaults.IPLimitPerMin
	}
	if config.BurstMultiplier <= 0 {
		config.BurstMultiplier = defaults.BurstMultiplier
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		fallback:    make(map[string]*fallbackEntry),
		stop:        make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.Client())
		slog.Info("Redis rate limiter initialized", "ip_limit_per_min", config.IPLimitPerMin)
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only", "ip_limit_per_min", config.IPLimitPerMin)
	}

	go rl.cleanupLoop()
	return rl
}

// Config returns the effective configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// AllowIP checks the per-minute budget of one client address
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, Rate{Limit: rl.config.IPLimitPerMin, Period: time.Minute})
}

// Allow consumes one event from the bucket named key
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d/%s", r.Limit, r.Period)
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	burst := r.Limit * rl.config.BurstMultiplier
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  burst,
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     r.Limit,
		Remaining: res.Remaining,
		ResetAt:   time.Now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}
	return result, nil
}

// allowFallback uses a token bucket per key
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	now := time.Now()
	burst := r.Limit * rl.config.BurstMultiplier

	rl.fallbackMu.Lock()
	entry, ok := rl.fallback[key]
	if !ok {
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Limit(float64(r.Limit)/r.Period.Seconds()), burst)}
		rl.fallback[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMu.Unlock()

	result := &Result{Limit: r.Limit}
	if entry.limiter.AllowN(now, 1) {
		result.Allowed = true
	} else {
		reservation := entry.limiter.ReserveN(now, 1)
		result.RetryAfter = reservation.DelayFrom(now)
		reservation.CancelAt(now)
		if result.RetryAfter < time.Second {
			result.RetryAfter = time.Second
		}
	}

	tokens := entry.limiter.TokensAt(now)
	if tokens > 0 {
		result.Remaining = int(tokens)
	}
	missing := float64(burst) - tokens
	refill := time.Duration(missing / float64(entry.limiter.Limit()) * float64(time.Second))
	result.ResetAt = now.Add(refill)
	return result
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			if removed := rl.cleanup(now); removed > 0 {
				slog.Debug("Removed idle fallback limiters", "count", removed)
			}
		}
	}
}

// cleanup drops limiters idle for longer than one cleanup interval
func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.fallbackMu.Lock()
	defer rl.fallbackMu.Unlock()

	removed := 0
	for key, entry := range rl.fallback {
		if now.Sub(entry.lastSeen) > rl.config.CleanupInterval {
			delete(rl.fallback, key)
			removed++
		}
	}
	return removed
}

// GetStats reports limiter state for the status endpoint
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMu.Lock()
	tracked := len(rl.fallback)
	rl.fallbackMu.Unlock()

	backend := "memory"
	if rl.redisLimiter != nil {
		backend = "redis"
	}

	return map[string]interface{}{
		"backend":          backend,
		"ip_limit_per_min": rl.config.IPLimitPerMin,
		"burst_multiplier": rl.config.BurstMultiplier,
		"fallback_keys":    tracked,
		"redis":            rl.redisClient.PoolStats(),
	}
}

// Close stops the cleanup goroutine. It does not close the Redis client.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
