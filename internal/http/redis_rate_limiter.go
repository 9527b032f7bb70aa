package httpx

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisRateTimeout = 250 * time.Millisecond

// redisRateLimiter shares fixed windows across API replicas. When Redis cannot
// answer, decisions fall back to a process-local limiter so streaming routes
// keep a ceiling.
type redisRateLimiter struct {
	client   *redis.Client
	fallback RateLimiter
	logger   *slog.Logger
	prefix   string
	timeout  time.Duration
	degraded atomic.Bool
}

// NewRedisRateLimiter connects to Redis and returns a shared limiter.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisRateLimiter(client, logger), nil
}

func newRedisRateLimiter(client *redis.Client, logger *slog.Logger) *redisRateLimiter {
	return &redisRateLimiter{
		client:   client,
		fallback: NewMemoryRateLimiter(),
		logger:   logger,
		prefix:   "music:ratelimit:",
		timeout:  redisRateTimeout,
	}
}

func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		if !rl.degraded.Swap(true) {
			rl.logger.Error("redis rate limiter unavailable, using local windows", "error", err)
		}
		return rl.fallback.Allow(key, limit, window)
	}
	if rl.degraded.Swap(false) {
		rl.logger.Info("redis rate limiter recovered")
	}

	count := int(incr.Val())
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return rateDecision{
		allowed:   count <= limit,
		count:     count,
		windowEnd: time.Now().Add(remaining),
	}
}

func (rl *redisRateLimiter) Close() {
	rl.fallback.Close()
	if rl.client != nil {
		_ = rl.client.Close()
	}
}
