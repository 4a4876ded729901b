package geocode

import (
	"context"
	"testing"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name    string
	results map[string]*Result
	calls   []string
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Geocode(_ context.Context, query string) (*Result, error) {
	p.calls = append(p.calls, query)
	if p.err != nil {
		return nil, p.err
	}
	return p.results[NormalizeQuery(query)], nil
}

func TestNormalizeQuery_CollapsesWhitespaceAndTrimsPunctuation(t *testing.T) {
	assert.Equal(t, "almaty, kz", NormalizeQuery("  Almaty,   KZ. "))
}

func TestQueriesForAddress_OrdersFullToCoarse(t *testing.T) {
	addr := models.Address{Country: "Kazakhstan", City: "Almaty", Street: "Abay", House: "10"}
	queries := QueriesForAddress(addr)
	require.Len(t, queries, 4)
	assert.Contains(t, queries[0], "Abay")
	assert.Equal(t, "Kazakhstan capital", queries[2])
	assert.Equal(t, "Kazakhstan", queries[3])
}

func TestResolve_FirstCascadeHitWins(t *testing.T) {
	addr := models.Address{Country: "Kazakhstan", City: "Almaty"}
	full := stubProvider{name: "full", results: map[string]*Result{
		NormalizeQuery("Kazakhstan, Almaty"): {Lat: 43.2, Lon: 76.9, Provider: "full"},
	}}
	resolver := NewResolver(NewMemCache(), []Provider{&full}, nil)

	result, err := resolver.Resolve(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "full", result.Provider)
}

func TestResolve_FallsBackToLastResortWhenCascadeMisses(t *testing.T) {
	addr := models.Address{Country: "Kazakhstan", City: "Nowhereville"}
	missAll := stubProvider{name: "geocoder1", results: map[string]*Result{}}
	capitalHit := stubProvider{name: "geocoder1"}
	resolver := NewResolver(NewMemCache(), []Provider{&missAll}, &Result{Lat: 1, Lon: 2})
	_ = capitalHit

	result, err := resolver.Resolve(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "last_resort", result.Provider)
}

func TestResolve_CachesNegativeResultAcrossCalls(t *testing.T) {
	addr := models.Address{City: "Nowhereville"}
	provider := stubProvider{name: "p", results: map[string]*Result{}}
	resolver := NewResolver(NewMemCache(), []Provider{&provider}, nil)

	_, err := resolver.Resolve(context.Background(), addr)
	require.NoError(t, err)
	callsAfterFirst := len(provider.calls)

	_, err = resolver.Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, len(provider.calls), "second resolve should hit the negative cache, not the provider again")
}

func TestResolve_NoAddressFragmentsReturnsLastResortOnly(t *testing.T) {
	resolver := NewResolver(NewMemCache(), nil, &Result{Lat: 9, Lon: 9, Provider: "ignored"})
	result, err := resolver.Resolve(context.Background(), models.Address{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "last_resort", result.Provider)
}

func TestMemCache_RoundTripsPositiveAndNegative(t *testing.T) {
	cache := NewMemCache()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "neg", nil))
	result, ok, err := cache.Get(ctx, "neg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, "pos", &Result{Lat: 1, Lon: 2, Provider: "x"}))
	result, ok, err = cache.Get(ctx, "pos")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, result)
	assert.Equal(t, 1.0, result.Lat)
}
