package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

const (
	snapshotKey = "snapshot"
	pendingKey  = "pending_writes"
	settingsKey = "connection_settings"
)

// Cache is the Redis backed offline cache
type Cache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisClient creates a Redis client from configuration
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New wraps a Redis client
func New(client *redis.Client, prefix string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, prefix: prefix, logger: logger}
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(name string) string {
	return c.prefix + name
}

func (c *Cache) setJSON(ctx context.Context, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := c.client.Set(ctx, c.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (c *Cache) getJSON(ctx context.Context, name string, v interface{}) error {
	data, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// SaveSnapshot stores the parameter list served while offline
func (c *Cache) SaveSnapshot(ctx context.Context, params []models.Parameter) error {
	if params == nil {
		params = []models.Parameter{}
	}
	return c.setJSON(ctx, snapshotKey, params)
}

// LoadSnapshot returns the last saved parameter list
func (c *Cache) LoadSnapshot(ctx context.Context) ([]models.Parameter, error) {
	var params []models.Parameter
	if err := c.getJSON(ctx, snapshotKey, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// QueueWrite appends a write to the offline queue
func (c *Cache) QueueWrite(ctx context.Context, op services.PendingWrite) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal pending write: %w", err)
	}
	if err := c.client.RPush(ctx, c.key(pendingKey), data).Err(); err != nil {
		return fmt.Errorf("failed to queue write: %w", err)
	}
	return nil
}

// PendingWrites returns the queue in insertion order. Entries that fail to
// decode come back as an empty write so positions line up with the list.
func (c *Cache) PendingWrites(ctx context.Context) ([]services.PendingWrite, error) {
	items, err := c.client.LRange(ctx, c.key(pendingKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending writes: %w", err)
	}

	writes := make([]services.PendingWrite, 0, len(items))
	for _, item := range items {
		var op services.PendingWrite
		if err := json.Unmarshal([]byte(item), &op); err != nil {
			c.logger.Warn("Corrupt pending write", zap.Error(err))
			op = services.PendingWrite{}
		}
		writes = append(writes, op)
	}
	return writes, nil
}

// DropPendingWrites removes the first n queued writes. Writes appended after
// they were read stay queued.
func (c *Cache) DropPendingWrites(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := c.client.LTrim(ctx, c.key(pendingKey), int64(n), -1).Err(); err != nil {
		return fmt.Errorf("failed to drop pending writes: %w", err)
	}
	return nil
}

// GetConnectionSettings returns saved settings or models.ErrNotFound
func (c *Cache) GetConnectionSettings(ctx context.Context) (*models.PLCConnectionSettings, error) {
	var s models.PLCConnectionSettings
	if err := c.getJSON(ctx, settingsKey, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveConnectionSettings stores settings
func (c *Cache) SaveConnectionSettings(ctx context.Context, s models.PLCConnectionSettings) error {
	return c.setJSON(ctx, settingsKey, s)
}
