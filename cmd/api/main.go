package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/config"
	"github.com/crucial707/ndt-dochub/internal/db"
	"github.com/crucial707/ndt-dochub/internal/middleware"
	"github.com/crucial707/ndt-dochub/internal/repo"
	"github.com/crucial707/ndt-dochub/internal/scheduler"
	"github.com/crucial707/ndt-dochub/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database FIRST
	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		fatal("failed to run migrations", err)
	}
	if cfg.SeedDefaults {
		if err := db.Seed(ctx, database, auth.NewHasher(cfg.PasswordIterations)); err != nil {
			fatal("failed to seed defaults", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, using in-process login limiter", "error", err)
		} else {
			defer rdb.Close()
		}
	}
	limiter := middleware.LoginLimiter(rdb, cfg.LoginRatePerMinute, cfg.LoginRateBurst)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		fatal("failed to open blob storage", err)
	}

	if cfg.SessionSweepCron != "" {
		sweeper, err := scheduler.RunSessionSweep(repo.NewSessionRepo(database, cfg.SessionMaxIdle), cfg.SessionSweepCron, cfg.SessionMaxIdle)
		if err != nil {
			fatal("failed to schedule session sweep", err)
		}
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, blobs, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server LAST
	errCh := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		slog.Info("starting server", "addr", srv.Addr, "tls", tls, "env", cfg.Env)
		if tls {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newBlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	if cfg.StorageBackend == "s3" {
		s, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			slog.Warn("s3 bucket not reachable at startup", "bucket", cfg.S3Bucket, "error", err)
		}
		return s, nil
	}
	return storage.NewLocalStore(cfg.StorageDir)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
