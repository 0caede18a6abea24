// Package cache persists per-subject notification snapshots in redis so the
// dashboard can render the last known list before the channel syncs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agboredim/studendashboard-sub001/internal/channel"
	"github.com/agboredim/studendashboard-sub001/internal/common/config"
	"github.com/agboredim/studendashboard-sub001/internal/common/logger"
)

// SnapshotStore implements channel.Store on top of redis.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// New creates a store with its own redis client.
func New(cfg config.RedisConfig, ttl time.Duration, log logger.Logger) *SnapshotStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return NewWithClient(rdb, ttl, log)
}

// NewWithClient wraps an existing client; tests pass a redismock client.
func NewWithClient(client *redis.Client, ttl time.Duration, log logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SnapshotStore{client: client, ttl: ttl, log: log}
}

func snapshotKey(subjectID string) string {
	return "notifications:" + subjectID
}

// SaveSnapshot stores the full list for the subject with the configured TTL.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, subjectID string, list []channel.Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(subjectID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored list, or nil when none exists.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, subjectID string) ([]channel.Notification, error) {
	data, err := s.client.Get(ctx, snapshotKey(subjectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var list []channel.Notification
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return list, nil
}

// Ping tests the redis connection.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *SnapshotStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
