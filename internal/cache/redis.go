package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisCache.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache stores static feature tables as JSON in redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts RedisOptions, logger logging.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger = logging.OrNop(logger).Named("RedisCache")
	logger.Info("redis cache initialized", logging.String("addr", opts.Addr))
	return &RedisCache{client: client, prefix: opts.KeyPrefix, ttl: opts.TTL, logger: logger}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.StaticFeatureTable, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get static features %q: %w", key, err)
	}

	var table models.StaticFeatureTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal static features %q: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	c.logger.Debug("static features cache hit", logging.String("key", key))
	return &table, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, table *models.StaticFeatureTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal static features: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set static features %q: %w", key, err)
	}
	c.logger.Debug("static features cached", logging.String("key", key), logging.Duration("ttl", c.ttl))
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete static features %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
