package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/travvy-ai/travvy-backend/internal/service"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// RegisterRequest is the request body for account creation.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the account and its issued tokens.
type AuthResponse struct {
	User   *types.User        `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new account.
func (s *Server) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "valid email is required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "password must be at least 8 characters"})
	}

	user, err := s.authService.Register(c.Request().Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return s.serviceError(c, err, "failed to register")
	}
	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and returns a token pair.
func (s *Server) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	user, tokens, err := s.authService.Login(c.Request().Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		return s.serviceError(c, err, "failed to log in")
	}
	return c.JSON(http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// Refresh exchanges a refresh token for a new pair.
func (s *Server) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "refresh_token is required"})
	}

	tokens, err := s.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid refresh token"})
	}
	return c.JSON(http.StatusOK, tokens)
}

// Me returns the authenticated account.
func (s *Server) Me(c echo.Context) error {
	user, err := s.authService.GetUser(c.Request().Context(), GetUserID(c))
	if err != nil {
		return s.serviceError(c, err, "failed to load account")
	}
	return c.JSON(http.StatusOK, user)
}
