package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/baletrack/config"
	"example.com/baletrack/internal/models"
)

// CacheClient defines the interface for the server-side warm cache of
// bale listings. It is invalidated wholesale after every committed
// mutation; a miss falls through to the record store.
type CacheClient interface {
	GetBales(ctx context.Context, key string) ([]models.Bale, error)
	SetBales(ctx context.Context, key string, bales []models.Bale) error
	InvalidateBales(ctx context.Context) error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     time.Hour,
	}, nil
}

// ListKey builds the cache key for a bale listing
func ListKey(status, plot, season string) string {
	return fmt.Sprintf("bales:%s:%s:%s", status, plot, season)
}

func balesPattern() string {
	return "bales:*"
}

// GetBales retrieves a cached bale listing
func (c *RedisClient) GetBales(ctx context.Context, key string) ([]models.Bale, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var bales []models.Bale
	if err := json.Unmarshal(data, &bales); err != nil {
		return nil, err
	}

	return bales, nil
}

// SetBales caches a bale listing
func (c *RedisClient) SetBales(ctx context.Context, key string, bales []models.Bale) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(bales)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// InvalidateBales drops every cached bale listing
func (c *RedisClient) InvalidateBales(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	iter := c.client.Scan(ctx, 0, balesPattern(), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
