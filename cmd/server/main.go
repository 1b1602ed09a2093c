// Package main is the entry point for the outreach-router HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadpilot/outreach-router/internal/audit"
	"github.com/leadpilot/outreach-router/internal/channel"
	"github.com/leadpilot/outreach-router/internal/config"
	"github.com/leadpilot/outreach-router/internal/handler"
	"github.com/leadpilot/outreach-router/internal/infrastructure/migrate"
	"github.com/leadpilot/outreach-router/internal/middleware"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository"
	"github.com/leadpilot/outreach-router/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if os.Getenv("AUTO_MIGRATE") == "true" {
		runner := migrate.NewRunner(&migrate.Config{
			DatabaseURL:    os.Getenv("DATABASE_URL"),
			MigrationsPath: "./migrations",
		})
		if err := runner.Run(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis only caches provider message ids; the engine routes
		// without it.
		logger.Warn("Redis unavailable, provider-id caching disabled", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	var publisher audit.Publisher = audit.NopPublisher{}
	if cfg.Audit.URL != "" {
		p, err := audit.NewAMQPPublisher(cfg.Audit.URL, cfg.Audit.Exchange, logger)
		if err != nil {
			logger.Fatal("Failed to connect audit publisher", zap.Error(err))
		}
		publisher = p
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("Failed to close audit publisher", zap.Error(err))
			}
		}()
	}

	adapters := channel.NewRegistry()
	if err := adapters.Register(models.ChannelEmail, channel.NewEmailAdapter(cfg.Channels.Email)); err != nil {
		logger.Fatal("Failed to register email adapter", zap.Error(err))
	}
	if err := adapters.Register(models.ChannelChat, channel.NewChatAdapter(cfg.Channels.Chat)); err != nil {
		logger.Fatal("Failed to register chat adapter", zap.Error(err))
	}

	policies := config.NewPolicyStore(cfg.Policy.SendPolicy())
	config.WatchPolicy(policies, logger)

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, policies, adapters, publisher, redisClient, logger)

	h := handler.NewHandler(svc, logger)
	router := setupRouter(h)

	middlewareConfig := &middleware.Config{
		Logger:         logger,
		RateLimit:      rate.Limit(cfg.Middleware.RateLimit),
		RateLimitBurst: cfg.Middleware.RateLimitBurst,
		RequestTimeout: 30 * time.Second,
	}
	if cfg.Middleware.EnableCORS {
		middlewareConfig.CORS = &middleware.CORSConfig{
			AllowedOrigins:   cfg.Middleware.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}
	}

	finalHandler := middleware.Chain(middlewareConfig)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := svc.Scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler on startup", zap.Error(err))
	}

	go func() {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if svc.Scheduler.IsRunning() {
		if err := svc.Scheduler.Stop(); err != nil {
			logger.Error("Failed to stop scheduler", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
