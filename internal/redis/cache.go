package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusguessr/scoreserver/internal/config"
	"github.com/campusguessr/scoreserver/internal/domain"
)

// Cache provides Redis-backed caching for the instance registry and for
// leaderboard snapshots pushed to WebSocket subscribers. Postgres stays
// authoritative; every cached value carries a TTL.
type Cache struct {
	client      *redis.Client
	instanceTTL time.Duration
	snapshotTTL time.Duration
	logger      *slog.Logger
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client:      client,
		instanceTTL: cfg.InstanceTTL,
		snapshotTTL: cfg.SnapshotTTL,
		logger:      logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// instanceKey returns the Redis key for a cached instance id
func (c *Cache) instanceKey(name string) string {
	return fmt.Sprintf("instance:%s:id", name)
}

// snapshotKey returns the Redis key for a leaderboard snapshot
func (c *Cache) snapshotKey(instance string, tf domain.Timeframe) string {
	return fmt.Sprintf("leaderboard:%s:%s:snapshot", instance, tf)
}

// GetInstanceID returns a cached instance id. The second return is false
// on a cache miss.
func (c *Cache) GetInstanceID(ctx context.Context, name string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.instanceKey(name)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting cached instance: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing cached instance id: %w", err)
	}
	return id, true, nil
}

// SetInstanceID caches an instance id with the configured TTL
func (c *Cache) SetInstanceID(ctx context.Context, name string, id int64) error {
	err := c.client.Set(ctx, c.instanceKey(name), strconv.FormatInt(id, 10), c.instanceTTL).Err()
	if err != nil {
		return fmt.Errorf("caching instance id: %w", err)
	}
	return nil
}

// SetSnapshot stores the current leaderboard for an instance/timeframe
func (c *Cache) SetSnapshot(ctx context.Context, instance string, tf domain.Timeframe, entries []domain.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.snapshotKey(instance, tf), data, c.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns a cached leaderboard snapshot. The second return is
// false on a cache miss.
func (c *Cache) GetSnapshot(ctx context.Context, instance string, tf domain.Timeframe) ([]domain.LeaderboardEntry, bool, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(instance, tf)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting snapshot: %w", err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return entries, true, nil
}
