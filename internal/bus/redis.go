package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "modgrid.lifecycle"

// Redis publishes lifecycle events onto a Redis stream so out-of-process
// consumers can follow unit lifecycles.
type Redis struct {
	client *redis.Client
	stream string
}

// NewRedis connects a stream notifier from a Redis URL. An empty stream
// name selects the default.
func NewRedis(url, stream string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if stream == "" {
		stream = defaultStream
	}
	return &Redis{client: redis.NewClient(opt), stream: stream}, nil
}

// Publish appends the event to the stream.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"id":           ev.ID,
			"type":         string(ev.Type),
			"unit":         ev.Unit,
			"error":        ev.Error,
			"load_time_ms": ev.LoadTime.Milliseconds(),
			"at":           ev.At.UnixMilli(),
		},
	}).Result()
	return err
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
