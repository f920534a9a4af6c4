package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/travvy-ai/travvy-backend/internal/service/planner"
)

// Chat handles one turn of a planning conversation.
func (s *Server) Chat(c echo.Context) error {
	var req planner.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}

	resp, err := s.plannerService.ProcessMessage(c.Request().Context(), GetUserID(c), &req)
	if err != nil {
		return s.serviceError(c, err, "failed to process message")
	}
	return c.JSON(http.StatusOK, resp)
}

// GetConversation returns a conversation with its messages.
func (s *Server) GetConversation(c echo.Context) error {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
	}

	conv, err := s.plannerService.GetConversation(c.Request().Context(), GetUserID(c), convID)
	if err != nil {
		return s.serviceError(c, err, "failed to get conversation")
	}
	return c.JSON(http.StatusOK, conv)
}
