package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"imagesvc/internal/domain"
)

// Cache stores merged search results.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.ImageCandidate, bool, error)
	Set(ctx context.Context, key string, list []domain.ImageCandidate, ttl time.Duration) error
}

// RedisCache keeps merged results as JSON strings in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache parses a redis:// URL and checks the connection.
func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("search cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("search cache: connect: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.ImageCandidate, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var list []domain.ImageCandidate
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, list []domain.ImageCandidate, ttl time.Duration) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
