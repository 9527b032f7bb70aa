package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vnq1909/music-web-stream-1/internal/app/migrate"
	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
	"github.com/vnq1909/music-web-stream-1/internal/blobstore/s3store"
	httpx "github.com/vnq1909/music-web-stream-1/internal/http"
	"github.com/vnq1909/music-web-stream-1/internal/repository/postgres"
	"github.com/vnq1909/music-web-stream-1/internal/service/auth"
	"github.com/vnq1909/music-web-stream-1/internal/service/catalog"
	"github.com/vnq1909/music-web-stream-1/internal/service/deletion"
	"github.com/vnq1909/music-web-stream-1/internal/service/events"
	"github.com/vnq1909/music-web-stream-1/internal/service/ingest"
	"github.com/vnq1909/music-web-stream-1/internal/service/playlist"
	"github.com/vnq1909/music-web-stream-1/internal/service/stream"
	"github.com/vnq1909/music-web-stream-1/internal/ws"
	"github.com/vnq1909/music-web-stream-1/pkg/config"
	"github.com/vnq1909/music-web-stream-1/pkg/logger"
)

func main() {
	config.LoadDotEnv(".env", ".env.local")
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	objects, err := s3store.New(ctx, s3store.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PathStyle: cfg.S3PathStyle,
		PartSize:  cfg.UploadPartBytes,
	}, log)
	if err != nil {
		log.Error("failed to configure object storage", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Error("object storage unavailable", "bucket", cfg.S3Bucket, "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	blobs := blobstore.New(objects, repo, cfg.S3Prefix, log)
	libraryHub := ws.NewHub()
	defer libraryHub.Close()
	eventSvc := events.New(libraryHub, log)

	services := httpx.Services{
		Auth:      auth.New(repo, repo, log, cfg),
		Ingest:    ingest.New(blobs, repo, eventSvc, log, cfg.UploadMaxBytes),
		Catalog:   catalog.New(repo, eventSvc, log),
		Deletion:  deletion.New(repo, repo, blobs, eventSvc, log),
		Stream:    stream.New(blobs, cfg.StreamChunkBytes, log),
		Playlists: playlist.New(repo, repo, log),
		Events:    eventSvc,
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, services, httpx.Options{
		Limiter:        limiter,
		CORSOrigin:     cfg.CORSOrigin,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Heartbeat:      cfg.EventHeartbeat,
		Health: map[string]func(context.Context) error{
			"database": repo.Ping,
			"storage":  objects.Ping,
		},
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
