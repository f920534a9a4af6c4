package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/travvy-ai/travvy-backend/internal/service/trip"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// CreateTripResponse is returned from POST /trips before generation runs.
type CreateTripResponse struct {
	Trip   *types.Trip `json:"trip"`
	TaskID uuid.UUID   `json:"task_id"`
	Status string      `json:"status"`
}

// ListTripsResponse is the response for listing trips.
type ListTripsResponse struct {
	Trips      []types.Trip `json:"trips"`
	TotalCount int          `json:"total_count"`
}

// UpdateTripRequest carries a partial patch plus the version the client read.
type UpdateTripRequest struct {
	Version *int `json:"version"`
	types.TripPatch
}

// OptimizeTripRequest is the request body for itinerary optimization.
type OptimizeTripRequest struct {
	Criteria    string         `json:"criteria"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// InviteRequest is the request body for adding a collaborator.
type InviteRequest struct {
	UserID uuid.UUID              `json:"user_id"`
	Role   types.CollaboratorRole `json:"role"`
}

// CreateTrip creates a trip and queues itinerary generation.
func (s *Server) CreateTrip(c echo.Context) error {
	var req trip.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	created, task, err := s.tripService.Create(c.Request().Context(), GetUserID(c), &req)
	if err != nil {
		return s.serviceError(c, err, "failed to create trip")
	}
	return c.JSON(http.StatusCreated, CreateTripResponse{
		Trip:   created,
		TaskID: task.ID,
		Status: string(created.Status),
	})
}

// ListTrips returns the user's trips, paginated.
func (s *Server) ListTrips(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	var status *types.TripStatus
	if raw := c.QueryParam("status"); raw != "" {
		st := types.TripStatus(raw)
		if !types.ValidTripStatus(st) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status filter"})
		}
		status = &st
	}

	trips, total, err := s.tripService.List(c.Request().Context(), GetUserID(c), status, limit, offset)
	if err != nil {
		return s.serviceError(c, err, "failed to list trips")
	}
	if trips == nil {
		trips = []types.Trip{}
	}
	return c.JSON(http.StatusOK, ListTripsResponse{Trips: trips, TotalCount: total})
}

// GetTrip returns a trip the user collaborates on.
func (s *Server) GetTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	t, err := s.tripService.Get(c.Request().Context(), GetUserID(c), tripID)
	if err != nil {
		return s.serviceError(c, err, "failed to get trip")
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateTrip applies a partial update with optimistic concurrency. A stale
// version returns 409 and the client must re-read and resubmit.
func (s *Server) UpdateTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	var req UpdateTripRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Version == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "version is required"})
	}

	updated, err := s.tripService.Update(c.Request().Context(), GetUserID(c), tripID, &req.TripPatch, *req.Version)
	if err != nil {
		return s.serviceError(c, err, "failed to update trip")
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteTrip soft-deletes a trip. Owner only.
func (s *Server) DeleteTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	if err := s.tripService.Delete(c.Request().Context(), GetUserID(c), tripID); err != nil {
		return s.serviceError(c, err, "failed to delete trip")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// DuplicateTrip copies a trip into a fresh planning trip owned by the caller.
func (s *Server) DuplicateTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	dup, err := s.tripService.Duplicate(c.Request().Context(), GetUserID(c), tripID)
	if err != nil {
		return s.serviceError(c, err, "failed to duplicate trip")
	}
	return c.JSON(http.StatusCreated, dup)
}

// OptimizeTrip submits a background optimization task.
func (s *Server) OptimizeTrip(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	var req OptimizeTripRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	task, err := s.tripService.Optimize(c.Request().Context(), GetUserID(c), tripID, req.Criteria, req.Constraints)
	if err != nil {
		return s.serviceError(c, err, "failed to submit optimization")
	}
	return c.JSON(http.StatusAccepted, task)
}

// TripStatus returns the trip status with its latest background task.
func (s *Server) TripStatus(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	view, err := s.tripService.Status(c.Request().Context(), GetUserID(c), tripID)
	if err != nil {
		return s.serviceError(c, err, "failed to get trip status")
	}
	return c.JSON(http.StatusOK, view)
}

// InviteCollaborator adds a collaborator with a role. Owner only.
func (s *Server) InviteCollaborator(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}

	var req InviteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.UserID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
	}

	updated, err := s.tripService.Invite(c.Request().Context(), GetUserID(c), tripID, req.UserID, req.Role)
	if err != nil {
		return s.serviceError(c, err, "failed to invite collaborator")
	}
	return c.JSON(http.StatusOK, updated)
}
