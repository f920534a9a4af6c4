package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TripEvents upgrades to a websocket that streams trip-changed events for the
// trip, plus progress of its in-flight background task. Access is checked
// before the upgrade.
func (s *Server) TripEvents(c echo.Context) error {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid trip id"})
	}
	userID := GetUserID(c)

	if _, err := s.tripService.Get(c.Request().Context(), userID, tripID); err != nil {
		return s.serviceError(c, err, "failed to open event stream")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s.hub.Add(tripID, conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.hub.Remove(tripID, conn)
		conn.Close()
	}()

	go s.streamTaskProgress(ctx, tripID)

	// The read loop exists to observe the close; clients never send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// streamTaskProgress polls the trip's latest task while it runs and fans each
// observation out to the trip's subscribers as a task-progress event.
func (s *Server) streamTaskProgress(ctx context.Context, tripID uuid.UUID) {
	latest, err := s.taskService.LatestForTrip(ctx, tripID)
	if err != nil || latest.Status.Terminal() {
		return
	}

	fetch := func(ctx context.Context) (*types.Task, error) {
		return s.taskService.LatestForTrip(ctx, tripID)
	}
	observe := func(task *types.Task) {
		payload, err := json.Marshal(task)
		if err != nil {
			return
		}
		data, err := json.Marshal(events.Event{
			Type:    events.TypeTaskProgress,
			TripID:  tripID,
			Payload: payload,
			At:      time.Now().UTC(),
		})
		if err != nil {
			return
		}
		s.hub.Broadcast(tripID, data)
	}

	if _, err := s.poller.Watch(ctx, fetch, observe); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Debug("task progress stream ended")
	}
}
