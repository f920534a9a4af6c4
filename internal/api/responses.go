package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/service"
	"github.com/travvy-ai/travvy-backend/internal/service/task"
	"github.com/travvy-ai/travvy-backend/internal/service/trip"
	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a generic success response.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// serviceError maps service-layer errors onto HTTP statuses. Unknown errors
// are logged and surface as a generic 500 with the given message.
func (s *Server) serviceError(c echo.Context, err error, msg string) error {
	var apiErr *gemini.APIError

	switch {
	case errors.Is(err, trip.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, trip.ErrForbidden), errors.Is(err, task.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, postgres.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, postgres.ErrVersionConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "version conflict"})
	case errors.Is(err, postgres.ErrEmailTaken):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "email already registered"})
	case errors.Is(err, task.ErrTerminal):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "task already finished"})
	case errors.As(err, &apiErr):
		s.logger.WithError(err).Error("upstream AI failure")
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream AI failure"})
	default:
		s.logger.WithError(err).Error(msg)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}
