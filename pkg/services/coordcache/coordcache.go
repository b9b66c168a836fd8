// Package coordcache caches geocoding results in Redis.
package coordcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"tripplanner/pkg/services"
)

// DefaultTTL keeps a place for a week; coordinates do not move.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "geocode:"

// RedisCache implements services.CoordinatesCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses redisURL (redis://host:port/db) and checks the connection.
func Connect(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client. A non-positive ttl uses DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func key(place string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(place))
}

// Get returns the cached coordinates for place, if any.
func (c *RedisCache) Get(ctx context.Context, place string) (services.Coordinates, bool, error) {
	raw, err := c.client.Get(ctx, key(place)).Bytes()
	if errors.Is(err, redis.Nil) {
		return services.Coordinates{}, false, nil
	}
	if err != nil {
		return services.Coordinates{}, false, fmt.Errorf("redis get: %w", err)
	}

	var coords services.Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		// Corrupt entries are treated as a miss and overwritten on the next Set.
		return services.Coordinates{}, false, nil
	}
	return coords, true, nil
}

// Set stores coordinates for place with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, place string, coords services.Coordinates) error {
	raw, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}
	if err := c.client.Set(ctx, key(place), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
