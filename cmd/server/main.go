package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/api"
	"github.com/travvy-ai/travvy-backend/internal/cache/redis"
	"github.com/travvy-ai/travvy-backend/internal/config"
	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/service"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/service/task"
	"github.com/travvy-ai/travvy-backend/internal/service/trip"
	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
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

	logger.Info("starting travvy-backend server")

	// Connect to database
	ctx := context.Background()
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
	userRepo := postgres.NewUserRepository(db.Pool())

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if cfg.Auth.DemoMode {
		logger.Warn("demo login enabled")
		authService.EnableDemoMode(cfg.Auth.DemoEmail, cfg.Auth.DemoPassword)
	}

	queue := redis.NewTaskQueue(redisClient, cfg.Worker.Queue)
	taskService := task.NewService(taskRepo, queue, logger)

	publisher := events.NewRedisPublisher(redisClient, logger)
	tripService := trip.NewService(tripRepo, redisClient, taskService, publisher, cfg.Cache.TripTTL, logger)

	plannerService := planner.NewService(geminiClient, convRepo, msgRepo, cfg.Gemini.Model, logger)

	// Websocket hub, fed by the Redis event bridge
	hub := events.NewHub(logger)
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	go events.RunBridge(bridgeCtx, redisClient, hub, logger)

	poller := task.NewPoller(cfg.Poll.Interval, cfg.Poll.MaxAttempts)

	// Initialize API server
	server := api.NewServer(
		authService, tripService, taskService, plannerService,
		hub, poller, db, redisClient,
		cfg.RateLimit.RPS, cfg.RateLimit.Burst,
		logger,
	)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Add middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Info("request")
			return nil
		},
	}))

	server.RegisterRoutes(e)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.WithField("addr", addr).Info("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}

	logger.Info("server stopped")
}
