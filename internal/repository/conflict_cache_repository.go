package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	conflictCacheNamespace = "conflicts:"
	conflictPurgeBatch     = 200
)

// ConflictCacheRepository keeps serialised conflict reports in Redis under one key namespace.
type ConflictCacheRepository struct {
	client    *redis.Client
	namespace string
}

// NewConflictCacheRepository constructs the repository. A nil client turns every call into a miss.
func NewConflictCacheRepository(client *redis.Client) *ConflictCacheRepository {
	return &ConflictCacheRepository{client: client, namespace: conflictCacheNamespace}
}

func (r *ConflictCacheRepository) key(name string) string {
	return r.namespace + name
}

// Get decodes the report stored under name into dest. A missing key is a miss, not an error.
// Entries that no longer decode are dropped.
func (r *ConflictCacheRepository) Get(ctx context.Context, name string, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get conflict report %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		_ = r.client.Del(ctx, r.key(name)).Err()
		return false, fmt.Errorf("decode conflict report %s: %w", name, err)
	}
	return true, nil
}

// Set stores the report under name for ttl.
func (r *ConflictCacheRepository) Set(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode conflict report %s: %w", name, err)
	}
	if err := r.client.Set(ctx, r.key(name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set conflict report %s: %w", name, err)
	}
	return nil
}

// Purge unlinks every report in the namespace and returns how many keys were removed.
func (r *ConflictCacheRepository) Purge(ctx context.Context) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	var (
		removed int
		cursor  uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.namespace+"*", conflictPurgeBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scan conflict reports: %w", err)
		}
		if len(keys) > 0 {
			n, err := r.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("unlink conflict reports: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Ping checks the Redis connection.
func (r *ConflictCacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection if present.
func (r *ConflictCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
