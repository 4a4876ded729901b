// Package geocode resolves free-form address fragments to coordinates
// through a cascade of providers, memoizing results behind a normalized
// query key.
package geocode

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// Result is one resolved (or cached-negative) geocode lookup.
type Result struct {
	Lat      float64
	Lon      float64
	Provider string
}

// Provider resolves a single query string to coordinates. A nil result with
// a nil error means the provider had no match for this query (as opposed to
// an error, which is passed up the cascade unless it is transient and the
// caller chooses to keep trying the next provider).
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Cache memoizes query -> Result lookups. RedisCache backs this with Redis
// (cross-process, TTL'd) and MemCache with an in-process map. Misses are
// tracked separately, in the Resolver's own in-process negative set, for
// the Resolver's lifetime.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, result *Result) error
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeQuery lowercases, collapses internal whitespace, and trims
// trailing punctuation so that equivalent address strings share a cache
// key regardless of incidental formatting differences.
func NormalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = whitespaceRun.ReplaceAllString(q, " ")
	return strings.TrimRight(q, ".,;: ")
}

// Resolver runs the provider cascade with cache-aside semantics: full
// address, then city centre, then country capital, then country search,
// then a configured last-resort coordinate. The first non-null provider
// result wins and is cached; an all-providers-miss result is also cached
// (negatively) so a batch does not repeat the full cascade for every
// ticket sharing an unresolvable address.
type Resolver struct {
	cache     Cache
	cascade   []Provider
	lastResort *Result

	mu      sync.Mutex
	negative map[string]bool
}

// NewResolver builds a Resolver. cascade is tried in order; lastResort (may
// be nil) is returned, and cached as a positive hit with provider name
// "last_resort", only if every cascade provider misses.
func NewResolver(cache Cache, cascade []Provider, lastResort *Result) *Resolver {
	return &Resolver{cache: cache, cascade: cascade, lastResort: lastResort, negative: make(map[string]bool)}
}

// QueriesForAddress builds the ordered list of cascade queries for an
// address: full address first, then progressively coarser fragments.
func QueriesForAddress(addr models.Address) []string {
	var queries []string
	full := strings.TrimSpace(strings.Join(nonEmpty(addr.Country, addr.Region, addr.City, addr.Street, addr.House), ", "))
	if full != "" {
		queries = append(queries, full)
	}
	if addr.City != "" {
		cityQuery := strings.TrimSpace(strings.Join(nonEmpty(addr.Country, addr.City), ", "))
		queries = append(queries, cityQuery)
	}
	if addr.Country != "" {
		queries = append(queries, addr.Country+" capital")
		queries = append(queries, addr.Country)
	}
	return dedupe(queries)
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Resolve runs the cascade for a ticket's address, returning nil (with a
// cached negative result) if no provider and no last resort ever matched.
func (r *Resolver) Resolve(ctx context.Context, addr models.Address) (*Result, error) {
	queries := QueriesForAddress(addr)
	if len(queries) == 0 {
		return r.fallback(ctx, "")
	}

	for _, query := range queries {
		key := NormalizeQuery(query)

		if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			if cached == nil {
				continue // a cached negative for this particular query; try the next, coarser one
			}
			return cached, nil
		}

		r.mu.Lock()
		negHit := r.negative[key]
		r.mu.Unlock()
		if negHit {
			continue
		}

		for _, provider := range r.cascade {
			result, err := provider.Geocode(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("geocode: provider %s failed on %q: %w", provider.Name(), query, err)
			}
			if result == nil {
				continue
			}
			if err := r.cache.Set(ctx, key, result); err != nil {
				return nil, fmt.Errorf("geocode: cache set for %q: %w", query, err)
			}
			return result, nil
		}

		r.mu.Lock()
		r.negative[key] = true
		r.mu.Unlock()
		_ = r.cache.Set(ctx, key, nil)
	}

	return r.fallback(ctx, NormalizeQuery(queries[len(queries)-1]))
}

func (r *Resolver) fallback(ctx context.Context, lastKey string) (*Result, error) {
	if r.lastResort == nil {
		return nil, nil
	}
	result := &Result{Lat: r.lastResort.Lat, Lon: r.lastResort.Lon, Provider: "last_resort"}
	if lastKey != "" {
		_ = r.cache.Set(ctx, lastKey, result)
	}
	return result, nil
}
