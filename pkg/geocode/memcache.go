package geocode

import "context"

// MemCache is an in-process Cache, used in tests and as the sole cache
// layer for deployments that run without Redis.
type MemCache struct {
	entries map[string]*Result
	known   map[string]bool
}

// NewMemCache builds an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string]*Result), known: make(map[string]bool)}
}

func (c *MemCache) Get(_ context.Context, key string) (*Result, bool, error) {
	if !c.known[key] {
		return nil, false, nil
	}
	return c.entries[key], true, nil
}

func (c *MemCache) Set(_ context.Context, key string, result *Result) error {
	c.known[key] = true
	c.entries[key] = result
	return nil
}
