// Package cache stores computed suggestion lists in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

var _ relations.SuggestionCache = (*SuggestionCache)(nil)

// DefaultTTL bounds how stale a cached list can get when no invalidation reaches it.
const DefaultTTL = 10 * time.Minute

// SuggestionCache keeps one hash per traversal root. Each field holds the
// JSON list computed for one caller and limit, so a single DEL drops every
// list rooted at an account. A set per account names the other roots whose
// lists depend on it.
type SuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Dial connects to the Redis server at url and checks it responds.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewSuggestionCache returns a cache using client. A non-positive ttl uses DefaultTTL.
func NewSuggestionCache(client *redis.Client, ttl time.Duration) *SuggestionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SuggestionCache{client: client, ttl: ttl}
}

func rootKey(root models.AccountRef) string {
	return "suggestions:" + root.String()
}

func dependentsKey(ref models.AccountRef) string {
	return "suggestions:deps:" + ref.String()
}

func (c *SuggestionCache) Get(ctx context.Context, root models.AccountRef, key string) ([]relations.Suggestion, bool, error) {
	raw, err := c.client.HGet(ctx, rootKey(root), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []relations.Suggestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached suggestions: %w", err)
	}
	return items, true, nil
}

func (c *SuggestionCache) Set(ctx context.Context, root models.AccountRef, key string, items []relations.Suggestion, dependsOn ...models.AccountRef) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	hash := rootKey(root)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, raw)
		pipe.Expire(ctx, hash, c.ttl)
		for _, ref := range dependsOn {
			deps := dependentsKey(ref)
			pipe.SAdd(ctx, deps, hash)
			pipe.Expire(ctx, deps, c.ttl)
		}
		return nil
	})
	return err
}

func (c *SuggestionCache) Invalidate(ctx context.Context, refs ...models.AccountRef) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(refs))
	for _, ref := range refs {
		deps := dependentsKey(ref)
		hashes, err := c.client.SMembers(ctx, deps).Result()
		if err != nil {
			return fmt.Errorf("read dependent suggestion lists: %w", err)
		}
		keys = append(keys, rootKey(ref), deps)
		keys = append(keys, hashes...)
	}
	return c.client.Del(ctx, keys...).Err()
}
