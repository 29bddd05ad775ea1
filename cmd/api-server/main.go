package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/database"
	"learnhub/internal/config"
	"learnhub/internal/feed"
	"learnhub/internal/microservices/http-api/middleware"
	"learnhub/internal/microservices/http-api/repository"
	"learnhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	// Setup structured logging
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub()
	publisher, err := startChangeFeed(ctx, cfg, hub, logger)
	if err != nil {
		logger.Error("change_feed_start_failed", "error", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx, time.Minute)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("database_handle_failed", "error", err)
		os.Exit(1)
	}

	router := newRouter(routerDeps{
		auth:           service.NewAuthService(cfg.JWTSecret),
		notifications:  service.NewNotificationService(repository.NewNotificationRepository(db), publisher, logger),
		hub:            hub,
		limiter:        limiter,
		requestTimeout: cfg.RequestTimeout,
		healthCheck:    sqlDB.PingContext,
		logger:         logger,
		requestLogging: cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_api_server",
			"addr", srv.Addr,
			"tls", cfg.TLSEnabled,
			"change_feed_mode", cfg.ChangeFeedMode,
			"redis", cfg.RedisEnabled(),
		)
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
		return
	}
	logger.Info("server_stopped_gracefully")
}

// startChangeFeed wires the selected change feed mode and returns the publisher the
// notification service should use.
func startChangeFeed(ctx context.Context, cfg *config.Config, hub *feed.Hub, logger *slog.Logger) (feed.Publisher, error) {
	switch cfg.ChangeFeedMode {
	case config.FeedModeListen:
		listener := feed.NewPGListener(cfg.DatabaseURL, cfg.ChangeFeedRetry, hub, logger)
		go listener.Run(ctx)
		return feed.NopPublisher{}, nil

	case config.FeedModePublish:
		if !cfg.RedisEnabled() {
			logger.Warn("change_feed_local_only", "reason", "REDIS_URL not set, events reach this instance only")
			return hub, nil
		}
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		bridge := feed.NewRedisBridge(rdb, hub, logger)
		go func() {
			defer rdb.Close()
			if err := bridge.Run(ctx); err != nil {
				logger.Error("redis_bridge_stopped", "error", err)
			}
		}()
		return bridge, nil
	}
	return nil, fmt.Errorf("unknown change feed mode %q", cfg.ChangeFeedMode)
}
