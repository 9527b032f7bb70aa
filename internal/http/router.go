package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnq1909/music-web-stream-1/internal/service/auth"
	"github.com/vnq1909/music-web-stream-1/internal/service/catalog"
	"github.com/vnq1909/music-web-stream-1/internal/service/deletion"
	"github.com/vnq1909/music-web-stream-1/internal/service/events"
	"github.com/vnq1909/music-web-stream-1/internal/service/ingest"
	"github.com/vnq1909/music-web-stream-1/internal/service/playlist"
	"github.com/vnq1909/music-web-stream-1/internal/service/stream"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Auth      auth.Service
	Ingest    ingest.Service
	Catalog   catalog.Service
	Deletion  deletion.Service
	Stream    stream.Service
	Playlists playlist.Service
	Events    events.Service
}

// Options tunes transport behaviour.
type Options struct {
	Limiter        RateLimiter
	CORSOrigin     string
	UploadMaxBytes int64
	Heartbeat      time.Duration
	// Health maps component names to readiness probes.
	Health map[string]func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	handler   http.Handler
	logger    *slog.Logger
	auth      auth.Service
	ingest    ingest.Service
	catalog   catalog.Service
	deletion  deletion.Service
	stream    stream.Service
	playlists playlist.Service
	events    events.Service
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	opts      Options

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	deletionSteps      *prometheus.CounterVec
	transferBytes      *prometheus.CounterVec
}

const (
	healthCheckTimeout = 2 * time.Second
	defaultHeartbeat   = 25 * time.Second
	multipartSlack     = 1 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, opts Options) *Router {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      svc.Auth,
		ingest:    svc.Ingest,
		catalog:   svc.Catalog,
		deletion:  svc.Deletion,
		stream:    svc.Stream,
		playlists: svc.Playlists,
		events:    svc.Events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool { return true },
		},
		limiter: opts.Limiter,
		opts:    opts,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	r.handler = r.cors(r.mux)
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.Handler())

	r.mux.HandleFunc("POST /api/v1/auth/register", r.public(rateRegister, r.handleRegister))
	r.mux.HandleFunc("POST /api/v1/auth/login", r.public(rateLogin, r.handleLogin))
	r.mux.HandleFunc("GET /api/v1/auth/users", r.authed(rateRead, r.requireAdmin(r.handleListUsers)))
	r.mux.HandleFunc("DELETE /api/v1/auth/users/{id}", r.authed(rateWrite, r.requireAdmin(r.handleDeleteUser)))

	// Listing and playback are public.
	r.mux.HandleFunc("GET /api/v1/songs", r.public(rateRead, r.handleListSongs))
	r.mux.HandleFunc("GET /api/v1/stream/{filename}", r.public(rateStream, r.handleStream))

	r.mux.HandleFunc("GET /api/v1/song/songs", r.authed(rateRead, r.handleListSongs))
	r.mux.HandleFunc("POST /api/v1/song/upload", r.authed(rateUpload, r.handleUpload))
	r.mux.HandleFunc("GET /api/v1/song/{id}", r.authed(rateRead, r.handleGetSong))
	r.mux.HandleFunc("PUT /api/v1/song/edit/{id}", r.authed(rateWrite, r.handleEditSong))
	r.mux.HandleFunc("DELETE /api/v1/song/delete/{id}", r.authed(rateWrite, r.handleDeleteSong))

	r.mux.HandleFunc("GET /api/v1/playlist", r.authed(rateRead, r.handleListPlaylists))
	r.mux.HandleFunc("POST /api/v1/playlist/create", r.authed(rateWrite, r.handleCreatePlaylist))
	r.mux.HandleFunc("GET /api/v1/playlist/{id}", r.authed(rateRead, r.handleGetPlaylist))
	r.mux.HandleFunc("POST /api/v1/playlist/add/{id}", r.authed(rateWrite, r.handleAddToPlaylist))
	r.mux.HandleFunc("DELETE /api/v1/playlist/remove/{id}", r.authed(rateWrite, r.handleRemoveFromPlaylist))
	r.mux.HandleFunc("DELETE /api/v1/playlist/delete/{id}", r.authed(rateWrite, r.handleDeletePlaylist))
	r.mux.HandleFunc("POST /api/v1/playlist/purge/{songId}", r.authed(rateWrite, r.requireAdmin(r.handlePurgePlaylists)))

	r.mux.HandleFunc("GET /api/v1/events", r.authed(rateRealtime, r.handleEventsSSE))
	r.mux.HandleFunc("GET /api/v1/events/ws", r.authed(rateRealtime, r.handleEventsWS))
}

func (r *Router) cors(next http.Handler) http.Handler {
	allowed := strings.TrimSpace(r.opts.CORSOrigin)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if allowed != "" && origin != "" && (allowed == "*" || origin == allowed) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", "Content-Range, Content-Length, Accept-Ranges, X-RateLimit-Remaining")
			h.Add("Vary", "Origin")
			if req.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-auth-token, Range")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	for name, check := range r.opts.Health {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
			continue
		}
		components[name] = map[string]any{"status": "up"}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" {
			route = req.URL.Path
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			if info.IsAdmin {
				actor = "admin"
			}
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
