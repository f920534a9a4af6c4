package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/cache/redis"
)

// Channel is the Redis pub/sub channel carrying trip events between the
// server and worker processes.
const Channel = "travvy:events:trips"

// RedisPublisher publishes events to the Redis channel so every server
// instance can fan them out to its own websocket subscribers.
type RedisPublisher struct {
	redis  *redis.Client
	logger *logrus.Logger
}

// NewRedisPublisher creates a publisher over the given Redis client.
func NewRedisPublisher(redisClient *redis.Client, logger *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{redis: redisClient, logger: logger}
}

// Publish marshals and publishes the event. Publishing is best-effort: a
// failed publish is logged, never surfaced to the mutation that caused it.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.WithError(err).Warn("failed to marshal trip event")
		return
	}
	if err := p.redis.Publish(ctx, Channel, string(data)); err != nil {
		p.logger.WithError(err).Warn("failed to publish trip event")
	}
}

// RunBridge subscribes to the Redis channel and feeds received events into
// the hub until ctx is cancelled.
func RunBridge(ctx context.Context, redisClient *redis.Client, hub *Hub, logger *logrus.Logger) {
	sub := redisClient.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithError(err).Warn("failed to decode trip event")
				continue
			}
			hub.Broadcast(ev.TripID, []byte(msg.Payload))
		}
	}
}
