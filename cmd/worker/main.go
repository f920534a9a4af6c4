package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/cache/redis"
	"github.com/travvy-ai/travvy-backend/internal/config"
	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/service/trip"
	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/worker"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load .env in development; ignore absence in production
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger.Info("starting travvy-backend worker")

	// Connect to database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis client
	redisClient, err := redis.New(cfg.Redis.URI)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	// Initialize Gemini client
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)

	// Initialize repositories
	tripRepo := postgres.NewTripRepository(db.Pool())
	taskRepo := postgres.NewTaskRepository(db.Pool())
	convRepo := postgres.NewConversationRepository(db.Pool())
	msgRepo := postgres.NewMessageRepository(db.Pool())

	// Trip writes from the worker invalidate the cache and publish change
	// events the same way request handlers do.
	publisher := events.NewRedisPublisher(redisClient, logger)
	tripService := trip.NewService(tripRepo, redisClient, nil, publisher, cfg.Cache.TripTTL, logger)

	plannerService := planner.NewService(geminiClient, convRepo, msgRepo, cfg.Gemini.Model, logger)

	queue := redis.NewTaskQueue(redisClient, cfg.Worker.Queue)
	pool := worker.New(taskRepo, queue, plannerService, tripService, tripRepo, worker.Config{
		Concurrency:  cfg.Worker.Concurrency,
		MaxRetries:   cfg.Worker.MaxRetries,
		RetryBackoff: cfg.Worker.RetryBackoff,
		PopTimeout:   cfg.Worker.PopTimeout,
	}, logger)

	logger.WithField("concurrency", cfg.Worker.Concurrency).Info("worker consuming queue")
	pool.Run(ctx)

	logger.Info("worker stopped")
}
