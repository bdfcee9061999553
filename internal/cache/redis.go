package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// ErrMiss is returned when no snapshot is cached for an equipment.
var ErrMiss = errors.New("no cached snapshot")

// HistoryLength is the number of recent events kept per equipment.
const HistoryLength = 50

// SnapshotCache keeps the latest broadcast event per equipment and a short
// time-ordered history of recent ones.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 5,
		MaxRetries:   3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(equipmentID string) string { return "equipment:live:" + equipmentID }
func historyKey(equipmentID string) string  { return "equipment:events:" + equipmentID }

func (c *SnapshotCache) Name() string { return "redis" }

// Deliver stores ev as the equipment's live snapshot and appends it to the
// history.
func (c *SnapshotCache) Deliver(ctx context.Context, ev domain.BroadcastEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	hk := historyKey(ev.EquipmentID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(ev.EquipmentID), data, c.ttl)
	pipe.ZAdd(ctx, hk, redis.Z{Score: float64(ev.Timestamp.UnixMilli()), Member: data})
	pipe.ZRemRangeByRank(ctx, hk, 0, -HistoryLength-1)
	pipe.Expire(ctx, hk, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Get(ctx context.Context, equipmentID string) (*domain.BroadcastEvent, error) {
	data, err := c.client.Get(ctx, snapshotKey(equipmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var ev domain.BroadcastEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &ev, nil
}

// Recent returns up to limit cached events, newest first.
func (c *SnapshotCache) Recent(ctx context.Context, equipmentID string, limit int) ([]domain.BroadcastEvent, error) {
	if limit <= 0 || limit > HistoryLength {
		limit = HistoryLength
	}
	items, err := c.client.ZRevRange(ctx, historyKey(equipmentID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	out := make([]domain.BroadcastEvent, 0, len(items))
	for _, item := range items {
		var ev domain.BroadcastEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
