package events

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// dialPair returns a connected client/server websocket pair.
func dialPair(t *testing.T) (client, server *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for server side of websocket")
	}
	return client, server
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(testLogger())
	tripID := uuid.New()

	client, server := dialPair(t)
	hub.Add(tripID, server)
	require.Equal(t, 1, hub.SubscriberCount(tripID))

	hub.Broadcast(tripID, []byte(`{"type":"trip_changed"}`))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"trip_changed"}`, string(data))

	// Other trips receive nothing.
	assert.Equal(t, 0, hub.SubscriberCount(uuid.New()))
}

func TestHubDropsFailedConnections(t *testing.T) {
	hub := NewHub(testLogger())
	tripID := uuid.New()

	_, server := dialPair(t)
	hub.Add(tripID, server)
	server.Close()

	hub.Broadcast(tripID, []byte("x"))
	assert.Equal(t, 0, hub.SubscriberCount(tripID))
}

func TestHubRemove(t *testing.T) {
	hub := NewHub(testLogger())
	tripID := uuid.New()

	_, server := dialPair(t)
	hub.Add(tripID, server)
	hub.Remove(tripID, server)
	assert.Equal(t, 0, hub.SubscriberCount(tripID))
}
