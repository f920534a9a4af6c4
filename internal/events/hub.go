package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub fans events out to websocket subscribers keyed by trip id. Connection
// writes are serialized behind the hub mutex.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*websocket.Conn]struct{}
	logger *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Add registers a connection for a trip's events.
func (h *Hub) Add(tripID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[tripID][conn] = struct{}{}
}

// Remove drops a connection. The caller closes it.
func (h *Hub) Remove(tripID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[tripID], conn)
	if len(h.subs[tripID]) == 0 {
		delete(h.subs, tripID)
	}
}

// Broadcast writes data to every subscriber of the trip. Connections that
// fail the write are dropped and closed.
func (h *Hub) Broadcast(tripID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[tripID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.subs[tripID], conn)
			conn.Close()
			h.logger.WithError(err).Debug("dropped websocket subscriber")
		}
	}
}

// SubscriberCount returns the number of live subscribers for a trip.
func (h *Hub) SubscriberCount(tripID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tripID])
}
