package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/service"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/service/task"
	"github.com/travvy-ai/travvy-backend/internal/service/trip"
)

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds API dependencies.
type Server struct {
	authService    *service.AuthService
	tripService    *trip.Service
	taskService    *task.Service
	plannerService *planner.Service
	hub            *events.Hub
	poller         *task.Poller
	db             Pinger
	redis          Pinger
	limiter        *ipLimiter
	logger         *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(
	authService *service.AuthService,
	tripService *trip.Service,
	taskService *task.Service,
	plannerService *planner.Service,
	hub *events.Hub,
	poller *task.Poller,
	db, redis Pinger,
	rps float64, burst int,
	logger *logrus.Logger,
) *Server {
	return &Server{
		authService:    authService,
		tripService:    tripService,
		taskService:    taskService,
		plannerService: plannerService,
		hub:            hub,
		poller:         poller,
		db:             db,
		redis:          redis,
		limiter:        newIPLimiter(rps, burst),
		logger:         logger,
	}
}

// RegisterRoutes mounts every endpoint on the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.Use(s.RateLimitMiddleware)

	e.GET("/healthz", s.Health)

	auth := e.Group("/auth")
	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/refresh", s.Refresh)

	users := e.Group("/users", s.AuthMiddleware)
	users.GET("/me", s.Me)

	trips := e.Group("/trips", s.AuthMiddleware)
	trips.POST("", s.CreateTrip)
	trips.GET("", s.ListTrips)
	trips.GET("/:id", s.GetTrip)
	trips.PUT("/:id", s.UpdateTrip)
	trips.DELETE("/:id", s.DeleteTrip)
	trips.POST("/:id/duplicate", s.DuplicateTrip)
	trips.POST("/:id/optimize", s.OptimizeTrip)
	trips.GET("/:id/status", s.TripStatus)
	trips.POST("/:id/collaborators", s.InviteCollaborator)
	trips.GET("/:id/ws", s.TripEvents)

	tasks := e.Group("/tasks", s.AuthMiddleware)
	tasks.GET("/:id", s.GetTask)
	tasks.POST("/:id/cancel", s.CancelTask)

	ai := e.Group("/ai", s.AuthMiddleware)
	ai.POST("/conversation", s.Chat)
	ai.GET("/conversations/:id", s.GetConversation)
}

// Health reports liveness of the database and Redis.
func (s *Server) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["redis"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
