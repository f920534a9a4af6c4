package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GetTask returns the status view of a background task. Clients poll this
// until the task reaches a terminal state and must inspect status explicitly.
func (s *Server) GetTask(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id"})
	}

	task, err := s.taskService.Get(c.Request().Context(), GetUserID(c), taskID)
	if err != nil {
		return s.serviceError(c, err, "failed to get task")
	}
	return c.JSON(http.StatusOK, task)
}

// CancelTask requests cancellation of a running task. The worker honors the
// request between stages.
func (s *Server) CancelTask(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id"})
	}

	if err := s.taskService.Cancel(c.Request().Context(), GetUserID(c), taskID); err != nil {
		return s.serviceError(c, err, "failed to cancel task")
	}
	return c.JSON(http.StatusAccepted, SuccessResponse{Success: true})
}
