package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published on the trip channel.
const (
	TypeTripChanged  = "trip_changed"
	TypeTaskProgress = "task_progress"
)

// Event is a broadcast-eligible notification about a trip. Successful
// optimistic updates and worker progress both publish here; live
// collaborators receive it over the websocket hub.
type Event struct {
	Type    string          `json:"type"`
	TripID  uuid.UUID       `json:"trip_id"`
	Version int             `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Publisher is the observer hook the trip service publishes through. The
// transport behind it is pluggable; NopPublisher satisfies it for tests.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// NopPublisher drops all events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
