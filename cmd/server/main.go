package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusguessr/scoreserver/internal/config"
	"github.com/campusguessr/scoreserver/internal/handler"
	"github.com/campusguessr/scoreserver/internal/kafka"
	"github.com/campusguessr/scoreserver/internal/postgres"
	"github.com/campusguessr/scoreserver/internal/redis"
	"github.com/campusguessr/scoreserver/internal/registry"
	"github.com/campusguessr/scoreserver/internal/service"
	"github.com/campusguessr/scoreserver/internal/websocket"
	"github.com/campusguessr/scoreserver/internal/window"
	"github.com/campusguessr/scoreserver/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Build the reset-window policy
	loc, err := time.LoadLocation(cfg.Leaderboard.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Leaderboard.Timezone, "error", err)
		os.Exit(1)
	}
	anchor, err := window.ParseWeekday(cfg.Leaderboard.AnchorWeekday)
	if err != nil {
		logger.Error("invalid anchor weekday", "weekday", cfg.Leaderboard.AnchorWeekday, "error", err)
		os.Exit(1)
	}
	policy, err := window.NewPolicy(*cfg.Leaderboard.ResetHour, anchor, loc)
	if err != nil {
		logger.Error("invalid reset window policy", "error", err)
		os.Exit(1)
	}
	logger.Info("reset window policy",
		"reset_hour", policy.ResetHour,
		"anchor_weekday", policy.AnchorWeekday.String(),
		"timezone", cfg.Leaderboard.Timezone,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	cache, err := redis.NewCache(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize instance registry and service
	reg := registry.New(repo, cache, logger)
	scoreService := service.NewLeaderboardService(repo, reg, policy, &cfg.Leaderboard, logger)
	scoreService.SetHub(wsHub)
	scoreService.SetSnapshots(cache)

	// Initialize background refresher
	refresher := worker.NewRefresher(
		repo,
		cache,
		reg,
		wsHub,
		policy,
		&cfg.Refresh,
		cfg.Leaderboard.DefaultLimit,
		logger,
	)

	// Warm caches once at startup
	refresher.RunOnce(ctx)

	if cfg.Refresh.Enabled {
		if err := refresher.Start(ctx); err != nil {
			logger.Error("failed to start refresher", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for bulk score ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, scoreService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(scoreService, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop refresher
	if err := refresher.Stop(); err != nil {
		logger.Error("failed to stop refresher", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
