package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope tags a relayed message with the instance that sent it.
type envelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

// RedisRelay publishes messages to the local hub and to a Redis channel,
// and rebroadcasts messages other instances put on that channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *slog.Logger
}

// NewRedisRelay connects to redisURL and verifies the connection.
func NewRedisRelay(redisURL, channel string, hub *Hub, logger *slog.Logger) (*RedisRelay, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  logger.With("component", "realtime_relay"),
	}, nil
}

// Publish delivers locally, then relays to other instances. The local
// delivery happens even when Redis is unavailable.
func (r *RedisRelay) Publish(ctx context.Context, msg Message) error {
	r.hub.Broadcast(msg)

	data, err := json.Marshal(envelope{Origin: r.origin, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Run forwards relayed messages to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				r.logger.Warn("invalid relay message", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.hub.Broadcast(env.Message)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
