package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client from a URL and performs a health check.
func NewRedisClient(ctx context.Context, url string) (*goRedis.Client, error) {
	opts, err := goRedis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("redis connected", "addr", opts.Addr)
	return client, nil
}

// RedisRelay publishes notifications to a Redis channel and feeds messages
// from that channel into a local Dispatcher, so every instance reaches its own sockets.
type RedisRelay struct {
	client  *goRedis.Client
	channel string
	log     *slog.Logger
}

// NewRedisRelay creates a relay on the given pub/sub channel.
func NewRedisRelay(client *goRedis.Client, channel string) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		log:     slog.Default().With("component", "redis_relay"),
	}
}

// NotifyTaskClosed implements domain.NotificationSink.
func (r *RedisRelay) NotifyTaskClosed(ctx context.Context, ownerID, taskID string) {
	r.publish(ctx, Notification{Type: KindTaskClosed, OwnerID: ownerID, TaskID: taskID})
}

// NotifyTaskRestored implements domain.NotificationSink.
func (r *RedisRelay) NotifyTaskRestored(ctx context.Context, ownerID, taskID string) {
	r.publish(ctx, Notification{Type: KindTaskRestored, OwnerID: ownerID, TaskID: taskID})
}

// NotifyTaskUpdated implements domain.NotificationSink.
func (r *RedisRelay) NotifyTaskUpdated(ctx context.Context, ownerID, taskID string) {
	r.publish(ctx, Notification{Type: KindTaskUpdated, OwnerID: ownerID, TaskID: taskID})
}

func (r *RedisRelay) publish(ctx context.Context, n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		r.log.Error("failed to marshal notification", "error", err)
		return
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.log.Warn("failed to publish notification", "type", n.Type, "task_id", n.TaskID, "error", err)
	}
}

// Run subscribes to the channel and dispatches every notification until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, dispatcher Dispatcher) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			r.log.Warn("failed to close redis subscription", "error", err)
		}
	}()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.log.Info("redis relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("redis relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				r.log.Warn("invalid notification payload", "error", err)
				continue
			}
			dispatcher.Dispatch(n)
		}
	}
}
