package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long cached scores stay valid. Review sets
// change slowly, so a day avoids most repeat model calls without going
// stale forever.
const DefaultCacheTTL = 24 * time.Hour

// ScoreCache caches per-perspective LLM scores in Redis, keyed by a
// digest of the model, the perspective, and the identity of the scored
// reviews. A review edit changes its created-at under the original
// system's update flow, so id+timestamp identifies review content
// without hashing the full text.
type ScoreCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewScoreCache wraps a Redis client. A zero ttl falls back to
// DefaultCacheTTL.
func NewScoreCache(rdb *redis.Client, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ScoreCache{rdb: rdb, ttl: ttl}
}

// Key computes the cache key for scoring the given reviews from one
// perspective with one model. Review order does not affect the key.
func (c *ScoreCache) Key(model, perspective string, reviews []Review) string {
	ids := make([]string, len(reviews))
	for i, r := range reviews {
		ids[i] = fmt.Sprintf("%d:%d", r.ID, r.CreatedAt.UnixNano())
	}
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", model, perspective)
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{','})
	}
	return "reviewflow:scores:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached scores for key, or (nil, nil) on a miss.
func (c *ScoreCache) Get(ctx context.Context, key string) (map[int64]int, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var scores map[int64]int
	if err := json.Unmarshal(data, &scores); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, nil
	}
	return scores, nil
}

// Set stores scores under key with the cache's TTL.
func (c *ScoreCache) Set(ctx context.Context, key string, scores map[int64]int) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
