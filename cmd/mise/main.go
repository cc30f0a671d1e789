package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/mise/internal/config"
	"github.com/dukerupert/mise/internal/database"
	"github.com/dukerupert/mise/internal/logging"
	"github.com/dukerupert/mise/internal/middleware"
	"github.com/dukerupert/mise/internal/oauth"
	"github.com/dukerupert/mise/internal/server"
	"github.com/dukerupert/mise/internal/storage"
	"github.com/dukerupert/mise/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Secure:         cfg.Production(),
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.RedisURL != "" {
		client, err := middleware.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		opts.Limiter = middleware.NewRedisLimiter(client)
		logger.Info("rate limiting via redis")
	}

	if cfg.S3.Enabled() {
		opts.Objects = storage.New(storage.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKeyID,
			SecretKey: cfg.S3.SecretAccessKey,
			PublicURL: cfg.S3.PublicURL,
		})
		logger.Info("uploads enabled", "bucket", cfg.S3.Bucket)
	} else {
		logger.Warn("uploads disabled, MISE_S3_* not set")
	}

	if cfg.GoogleEnabled() {
		opts.Provider = oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL())
	} else {
		logger.Warn("google sign-in disabled, MISE_GOOGLE_* not set")
	}

	srv := server.New(db, opts, logger)

	go sweep(ctx, cfg.SweepInterval, srv.SessionStore(), srv.RateLimiter(), logger.With("component", "sweeper"))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("mise listening", "addr", httpServer.Addr, "env", cfg.Env, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// sweep deletes expired sessions and stale limiter windows until ctx ends.
func sweep(ctx context.Context, every time.Duration, sessions *store.SessionStore, limiter *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("expired sessions removed", "count", n)
			}
			if limiter != nil {
				limiter.Cleanup()
			}
		}
	}
}
