package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newMemoryRateLimiter(func() time.Time { return now })
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		d := rl.Allow("k", 3, time.Minute)
		require.True(t, d.allowed, "hit %d", i)
		assert.Equal(t, i, d.count)
	}
	denied := rl.Allow("k", 3, time.Minute)
	assert.False(t, denied.allowed)
	assert.Equal(t, 0, denied.remaining(3))
	assert.Equal(t, 60, denied.retryAfter(now))

	assert.True(t, rl.Allow("other", 3, time.Minute).allowed)

	now = now.Add(time.Minute)
	fresh := rl.Allow("k", 3, time.Minute)
	assert.True(t, fresh.allowed)
	assert.Equal(t, 1, fresh.count)

	now = now.Add(2 * time.Minute)
	rl.expire(now)
	rl.mu.Lock()
	assert.Empty(t, rl.windows)
	rl.mu.Unlock()
}

func TestRedisRateLimiterFallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	rl := newRedisRateLimiter(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer rl.Close()

	assert.True(t, rl.Allow("k", 2, time.Minute).allowed)
	assert.True(t, rl.Allow("k", 2, time.Minute).allowed)
	assert.False(t, rl.Allow("k", 2, time.Minute).allowed)
	assert.True(t, rl.degraded.Load())
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", clientIP(req))
	assert.Equal(t, "ip:10.0.0.9", rateLimitKeyIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
	assert.Equal(t, "ip", keyKind(rateLimitKeyIP(req)))
	assert.Equal(t, "unknown", keyKind("nokind"))
}
