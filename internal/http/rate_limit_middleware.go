package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// rateClass is a request budget shared by a group of routes.
type rateClass struct {
	name   string
	limit  int
	window time.Duration
}

var (
	rateRegister = rateClass{name: "register", limit: 5, window: time.Minute}
	rateLogin    = rateClass{name: "login", limit: 12, window: time.Minute}
	rateUpload   = rateClass{name: "upload", limit: 10, window: time.Minute}
	rateWrite    = rateClass{name: "write", limit: 60, window: time.Minute}
	rateRead     = rateClass{name: "read", limit: 240, window: time.Minute}
	rateStream   = rateClass{name: "stream", limit: 600, window: time.Minute}
	rateRealtime = rateClass{name: "realtime", limit: 30, window: 30 * time.Second}
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter decides whether a keyed request fits in its fixed window.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

func (d rateDecision) remaining(limit int) int {
	if left := limit - d.count; left > 0 {
		return left
	}
	return 0
}

func (d rateDecision) retryAfter(now time.Time) int {
	if d.windowEnd.IsZero() {
		return 1
	}
	secs := int(math.Ceil(d.windowEnd.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type fixedWindow struct {
	hits int
	ends time.Time
}

// NewMemoryRateLimiter keeps windows in process memory. It is the default and
// the fallback when Redis is unreachable.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now)
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	rl := &memoryRateLimiter{
		windows: make(map[string]*fixedWindow),
		now:     now,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &fixedWindow{ends: now.Add(window)}
		rl.windows[key] = w
	}
	if w.hits >= limit {
		return rateDecision{allowed: false, count: w.hits, windowEnd: w.ends}
	}
	w.hits++
	return rateDecision{allowed: true, count: w.hits, windowEnd: w.ends}
}

func (rl *memoryRateLimiter) sweep() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.expire(rl.now())
		case <-rl.stop:
			return
		}
	}
}

func (rl *memoryRateLimiter) expire(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if !now.Before(w.ends) {
			delete(rl.windows, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// public guards an unauthenticated route with a per-IP budget.
func (r *Router) public(class rateClass, next http.HandlerFunc) http.HandlerFunc {
	return r.audit(r.withRateLimit(class, rateLimitKeyIP, next))
}

// authed requires a credential and charges the caller's own budget.
func (r *Router) authed(class rateClass, next http.HandlerFunc) http.HandlerFunc {
	return r.audit(r.requireAuth(r.withRateLimit(class, r.rateLimitKeyUser, next)))
}

func (r *Router) withRateLimit(class rateClass, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if class.limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key := keyFn(req)
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(class.name+"|"+key, class.limit, class.window)
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(class.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining(class.limit)))
		if !decision.windowEnd.IsZero() {
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
		}
		if !decision.allowed {
			h.Set("Retry-After", strconv.Itoa(decision.retryAfter(time.Now())))
			r.recordRateLimitHit(class.name, keyKind(key))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next(w, req)
	}
}

func (r *Router) rateLimitKeyUser(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
		return "user:" + info.UserID
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host := clientIP(req)
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func keyKind(key string) string {
	kind, _, ok := strings.Cut(key, ":")
	if !ok || kind == "" {
		return "unknown"
	}
	return kind
}
