package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupTTL covers the redelivery window of the chat transport.
const DedupTTL = 24 * time.Hour

// KeyValueStore is the subset of the Redis client used for dedup keys.
type KeyValueStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DedupChecker remembers handled action deliveries in Redis.
// Key format: dedup:action:<identity>:<action_id>
type DedupChecker struct {
	client KeyValueStore
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client KeyValueStore) *DedupChecker {
	return &DedupChecker{client: client, ttl: DedupTTL}
}

// IsDuplicate reports whether this delivery has already been handled.
func (d *DedupChecker) IsDuplicate(ctx context.Context, identity, actionID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(identity, actionID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this delivery has been handled (expires after DedupTTL).
func (d *DedupChecker) Mark(ctx context.Context, identity, actionID string) error {
	if err := d.client.Set(ctx, dedupKey(identity, actionID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func dedupKey(identity, actionID string) string {
	return fmt.Sprintf("dedup:action:%s:%s", identity, actionID)
}
