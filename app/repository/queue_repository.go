package repository

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// KeyInfo describes one redis key without loading more than a string payload.
type KeyInfo struct {
	Key   string
	Kind  string // redis TYPE: string, list, hash, ...
	TTL   time.Duration
	Len   int64 // list or hash length, byte size for strings
	Value string
}

type queueRepository struct {
	client *redis.Client
}

func NewQueueRepository(client *redis.Client) QueueRepository {
	return &queueRepository{client: client}
}

// FindKeys runs SCAN for every pattern and returns the sorted union.
func (r *queueRepository) FindKeys(ctx context.Context, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
		for iter.Next(ctx) {
			seen[iter.Val()] = struct{}{}
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Inspect reads type and TTL in one round trip, then the length or value.
// A missing key returns redis.Nil.
func (r *queueRepository) Inspect(ctx context.Context, key string) (*KeyInfo, error) {
	pipe := r.client.Pipeline()
	typ := pipe.Type(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	info := &KeyInfo{Key: key, Kind: typ.Val(), TTL: ttl.Val()}
	var err error
	switch info.Kind {
	case "none":
		return nil, redis.Nil
	case "string":
		info.Value, err = r.client.Get(ctx, key).Result()
		info.Len = int64(len(info.Value))
	case "list":
		info.Len, err = r.client.LLen(ctx, key).Result()
	case "hash":
		info.Len, err = r.client.HLen(ctx, key).Result()
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

// DeleteKeys deletes in batches and returns how many keys existed.
func (r *queueRepository) DeleteKeys(ctx context.Context, keys []string) (int64, error) {
	var total int64
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := r.client.Del(ctx, keys[start:end]...).Result()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
