package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider queries a Nominatim-compatible geocoding HTTP API: GET
// {baseURL}?q={query}&format=json, responding with a JSON array of
// candidates ordered by relevance. The first candidate is taken as the
// match.
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPProvider builds an HTTPProvider. apiKey may be empty for providers
// that don't require one.
func NewHTTPProvider(name, baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type candidate struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode issues one lookup. Returns (nil, nil) when the provider returns
// zero candidates, distinct from a transport or decode error.
func (p *HTTPProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("geocode: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: %s returned HTTP %d", p.name, resp.StatusCode)
	}

	var candidates []candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("geocode: decode %s response: %w", p.name, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var lat, lon float64
	if _, err := fmt.Sscanf(candidates[0].Lat, "%f", &lat); err != nil {
		return nil, fmt.Errorf("geocode: parse lat from %s: %w", p.name, err)
	}
	if _, err := fmt.Sscanf(candidates[0].Lon, "%f", &lon); err != nil {
		return nil, fmt.Errorf("geocode: parse lon from %s: %w", p.name, err)
	}

	p.logger.Debug("geocode provider resolved query", "provider", p.name, "query", query)
	return &Result{Lat: lat, Lon: lon, Provider: p.name}, nil
}
