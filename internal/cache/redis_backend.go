package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares cached responses between dashboard processes. Each
// entry is a JSON string with an expiry, tag membership is a Redis set and
// invalidation writes stale markers in a single pipeline.
type RedisBackend struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisBackend(ctx context.Context, addr string, retention time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisBackend{client: c, retention: retention}, nil
}

func entryKey(key string) string { return fmt.Sprintf("cache:entry:%s", key) }
func staleKey(key string) string { return fmt.Sprintf("cache:stale:%s", key) }
func tagKey(t Tag) string        { return fmt.Sprintf("cache:tag:%s", t) }

func (rb *RedisBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	pipe := rb.client.Pipeline()
	getR := pipe.Get(ctx, entryKey(key))
	staleR := pipe.Exists(ctx, staleKey(key))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, false, fmt.Errorf("error executing redis pipeline: %w", err)
	}

	b, err := getR.Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("error getting cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false, fmt.Errorf("error decoding cache entry: %w", err)
	}
	e.Invalidated = staleR.Val() > 0

	return e, true, nil
}

func (rb *RedisBackend) Set(ctx context.Context, key string, e Entry, tags []Tag) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("error encoding cache entry: %w", err)
	}

	pipe := rb.client.Pipeline()
	pipe.Set(ctx, entryKey(key), b, rb.retention)
	pipe.Del(ctx, staleKey(key))
	for _, t := range tags {
		pipe.SAdd(ctx, tagKey(t), key)
		pipe.Expire(ctx, tagKey(t), rb.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error executing redis pipeline: %w", err)
	}
	return nil
}

func (rb *RedisBackend) Invalidate(ctx context.Context, tags ...Tag) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, t := range tags {
		members, err := rb.client.SMembers(ctx, tagKey(t)).Result()
		if err != nil {
			return nil, fmt.Errorf("error reading tag %s: %w", t, err)
		}
		for _, k := range members {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := rb.client.Pipeline()
	for _, k := range keys {
		pipe.Set(ctx, staleKey(k), 1, rb.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("error executing redis pipeline: %w", err)
	}

	return keys, nil
}

func (rb *RedisBackend) Close() error {
	if err := rb.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
