// Package redisstore provides a built-in unit exposing a Redis-backed
// key/value store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Store is the unit instance backing the "redisstore" factory.
type Store struct {
	url    string
	prefix string
	ttl    time.Duration
	client *redis.Client
}

// New builds the unit from its spec. Config keys: "url" (required),
// "prefix", "ttl" (duration string, 0 keeps entries forever).
func New(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
	rawURL := spec.ConfigString("url", "")
	if rawURL == "" {
		return nil, fmt.Errorf("unit '%s': config key 'url' is required", spec.Name)
	}
	return &Store{
		url:    rawURL,
		prefix: spec.ConfigString("prefix", ""),
		ttl:    spec.ConfigDuration("ttl", 0),
	}, nil
}

// Load implements unit.Unit. The connection is verified with a ping so a
// bad address fails the load instead of the first capability call.
func (s *Store) Load(ctx context.Context) error {
	opt, err := redis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Redis store connected.", "addr", opt.Addr)
	s.client = client
	return nil
}

// Unload implements unit.Unit.
func (s *Store) Unload(context.Context) error {
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

// Capabilities implements unit.Unit.
func (s *Store) Capabilities() []unit.Capability {
	return []unit.Capability{
		{
			Name:        "get",
			Description: "Read a key. Returns nil when the key is absent.",
			Handler:     s.get,
		},
		{
			Name:        "set",
			Description: "Write a key with the configured TTL.",
			Handler:     s.set,
		},
		{
			Name:        "delete",
			Description: "Delete a key.",
			Handler:     s.delete,
		},
	}
}

// Describe implements unit.Describer.
func (s *Store) Describe() unit.Metadata {
	return unit.Metadata{Version: "1.0.0", Description: "redis key/value store"}
}

func (s *Store) key(args map[string]any) (string, error) {
	key, _ := args["key"].(string)
	if key == "" {
		return "", fmt.Errorf("argument 'key' is required")
	}
	return s.prefix + key, nil
}

func (s *Store) get(ctx context.Context, args map[string]any) (any, error) {
	key, err := s.key(args)
	if err != nil {
		return nil, err
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *Store) set(ctx context.Context, args map[string]any) (any, error) {
	key, err := s.key(args)
	if err != nil {
		return nil, err
	}
	value, _ := args["value"].(string)
	return nil, s.client.Set(ctx, key, value, s.ttl).Err()
}

func (s *Store) delete(ctx context.Context, args map[string]any) (any, error) {
	key, err := s.key(args)
	if err != nil {
		return nil, err
	}
	return nil, s.client.Del(ctx, key).Err()
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory("redisstore", New)
}
