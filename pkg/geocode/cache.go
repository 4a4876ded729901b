package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the cross-process geocode cache. It stores positive hits
// with a long TTL and negative hits (query exhausted the cascade) with a
// short one, matching "cached for the batch lifetime but not persisted
// across process restarts" by simply expiring negatives quickly rather
// than tracking batch identity in the cache key.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// cachedEntry is the JSON envelope stored in Redis; Negative distinguishes
// "we looked, nothing resolved" from "key absent, never looked".
type cachedEntry struct {
	Negative bool    `json:"negative"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	Provider string  `json:"provider,omitempty"`
}

// NewRedisCache builds a RedisCache. positiveTTL and negativeTTL of zero
// fall back to 720h and 1h respectively.
func NewRedisCache(client *redis.Client, keyPrefix string, positiveTTL, negativeTTL time.Duration) *RedisCache {
	if positiveTTL <= 0 {
		positiveTTL = 720 * time.Hour
	}
	if negativeTTL <= 0 {
		negativeTTL = time.Hour
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix, positiveTTL: positiveTTL, negativeTTL: negativeTTL}
}

func (c *RedisCache) fullKey(key string) string {
	return c.keyPrefix + ":" + key
}

// Get returns (result, true, nil) on a positive hit, (nil, true, nil) on a
// cached negative, and (nil, false, nil) on a cache miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	raw, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("geocode: redis get %q: %w", key, err)
	}

	var entry cachedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("geocode: decode cache entry for %q: %w", key, err)
	}
	if entry.Negative {
		return nil, true, nil
	}
	return &Result{Lat: entry.Lat, Lon: entry.Lon, Provider: entry.Provider}, true, nil
}

// Set stores result (nil means a negative cache entry) under key.
func (c *RedisCache) Set(ctx context.Context, key string, result *Result) error {
	entry := cachedEntry{Negative: result == nil}
	ttl := c.positiveTTL
	if result != nil {
		entry.Lat, entry.Lon, entry.Provider = result.Lat, result.Lon, result.Provider
	} else {
		ttl = c.negativeTTL
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("geocode: encode cache entry for %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.fullKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("geocode: redis set %q: %w", key, err)
	}
	return nil
}
