// Package config loads the Policies object: the single immutable
// configuration read at startup governing stage concurrency, retry
// budgets, scoring weights, relaxation order, difficulty weights, and the
// expansion-country set.
package config

import "time"

// ConcurrencyLimits bounds cross-ticket parallelism per stage.
type ConcurrencyLimits struct {
	LLM      int `yaml:"llm" validate:"required,min=1"`
	Geocode  int `yaml:"geocode" validate:"required,min=1"`
	SpamLLM  int `yaml:"spam_llm" validate:"required,min=1"`
}

// RetryBudget bounds one stage's retry attempts and per-attempt/per-stage
// wall-clock timeouts.
type RetryBudget struct {
	MaxAttempts      int           `yaml:"max_attempts" validate:"required,min=1"`
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout" validate:"required"`
	StageTimeout      time.Duration `yaml:"stage_timeout" validate:"required"`
}

// RetryBudgets groups the per-stage budgets named in the timeout table.
type RetryBudgets struct {
	LLM     RetryBudget `yaml:"llm"`
	Geocode RetryBudget `yaml:"geocode"`
	Spam    RetryBudget `yaml:"spam"`
	DBWrite RetryBudget `yaml:"db_write"`
}

// ScoringWeights mirrors priority.Weights in wire form.
type ScoringWeights struct {
	Segment   float64 `yaml:"segment"`
	Type      float64 `yaml:"type"`
	Sentiment float64 `yaml:"sentiment"`
	Age       float64 `yaml:"age"`
	Repeat    float64 `yaml:"repeat"`
	Reserved  float64 `yaml:"reserved"`
}

// ScoringExtras mirrors priority.Extras in wire form.
type ScoringExtras struct {
	ExpansionCountries []string `yaml:"expansion_countries"`
	HomeCountry        string   `yaml:"home_country"`
	FIFOMaxBonus       float64  `yaml:"fifo_max_bonus"`
	ExpansionBonus     float64  `yaml:"expansion_bonus"`
	YoungVIPBonus      float64  `yaml:"young_vip_bonus"`
	YoungVIPAgeCeiling int      `yaml:"young_vip_age_ceiling"`
}

// Secrets holds environment-provided credentials. DatabaseURL and
// EncryptionKey are required: Initialize fails startup with
// ErrMissingSecret if either is empty. LLMAPIKey and GeocoderAPIKey are
// optional and may be empty.
type Secrets struct {
	LLMAPIKey      string `yaml:"-"`
	GeocoderAPIKey string `yaml:"-"`
	DatabaseURL    string `yaml:"-"`
	EncryptionKey  string `yaml:"-"`
}

// Policies is the full, validated, immutable configuration object.
type Policies struct {
	Concurrency       ConcurrencyLimits        `yaml:"concurrency" validate:"required"`
	Retry             RetryBudgets             `yaml:"retry"`
	ScoringWeights    ScoringWeights           `yaml:"scoring_weights"`
	ScoringExtras     ScoringExtras            `yaml:"scoring_extras"`
	DifficultyWeights map[string]int           `yaml:"difficulty_weights"`
	LastResort        *LastResortCoordinates   `yaml:"last_resort_coordinates"`
	GeocodeProviders  []GeocodeProviderConfig  `yaml:"geocode_providers"`
	GeocodeCache      GeocodeCacheConfig       `yaml:"geocode_cache"`

	Secrets Secrets `yaml:"-"`
}

// LastResortCoordinates is returned by the geocoder port when the full
// cascade has no match.
type LastResortCoordinates struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// GeocodeProviderConfig describes one HTTP geocoding provider in the
// cascade.
type GeocodeProviderConfig struct {
	Name    string `yaml:"name" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// GeocodeCacheConfig configures the cross-process geocode cache. RedisAddr
// empty means "no Redis available, fall back to an in-memory cache" (one
// instance created at startup and shared by every batch for the life of the
// process).
type GeocodeCacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	PositiveTTL   time.Duration `yaml:"positive_ttl"`
	NegativeTTL   time.Duration `yaml:"negative_ttl"`
}

// Defaults is the conservative out-of-the-box configuration applied before
// any loaded YAML overrides are merged on top.
var Defaults = Policies{
	Concurrency: ConcurrencyLimits{LLM: 5, Geocode: 10, SpamLLM: 3},
	Retry: RetryBudgets{
		LLM:     RetryBudget{MaxAttempts: 3, PerAttemptTimeout: 20 * time.Second, StageTimeout: 60 * time.Second},
		Geocode: RetryBudget{MaxAttempts: 3, PerAttemptTimeout: 5 * time.Second, StageTimeout: 15 * time.Second},
		Spam:    RetryBudget{MaxAttempts: 2, PerAttemptTimeout: 10 * time.Second, StageTimeout: 30 * time.Second},
		DBWrite: RetryBudget{MaxAttempts: 3, PerAttemptTimeout: 2 * time.Second, StageTimeout: 10 * time.Second},
	},
	ScoringWeights: ScoringWeights{
		Segment: 0.30, Type: 0.25, Sentiment: 0.15, Age: 0.10, Repeat: 0.07, Reserved: 0.13,
	},
	ScoringExtras: ScoringExtras{
		FIFOMaxBonus: 1.0, ExpansionBonus: 1.0, YoungVIPBonus: 1.0, YoungVIPAgeCeiling: 30,
	},
	DifficultyWeights: map[string]int{},
	GeocodeCache:      GeocodeCacheConfig{KeyPrefix: "ticketrouter:geocode"},
}
