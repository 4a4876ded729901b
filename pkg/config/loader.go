package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Initialize loads policies.yaml from configPath, expands environment
// variables, merges over Defaults, validates the result, and resolves
// required secrets from the environment. Missing required secrets are a
// hard start-up failure.
func Initialize(configPath string) (*Policies, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	if err := validatePolicies(cfg); err != nil {
		return nil, fmt.Errorf("policies validation failed: %w", err)
	}

	secrets, err := loadSecrets()
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets

	return cfg, nil
}

func load(configPath string) (*Policies, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var loaded Policies
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	merged := Defaults
	if err := mergo.Merge(&merged, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge defaults: %w", err)
	}
	return &merged, nil
}

var structValidator = validator.New()

func validatePolicies(cfg *Policies) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func loadSecrets() (Secrets, error) {
	secrets := Secrets{
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		EncryptionKey:  os.Getenv("PII_ENCRYPTION_KEY"),
	}

	missing := map[string]string{
		"DATABASE_URL":       secrets.DatabaseURL,
		"PII_ENCRYPTION_KEY": secrets.EncryptionKey,
	}
	for name, val := range missing {
		if val == "" {
			return Secrets{}, fmt.Errorf("%w: %s", ErrMissingSecret, name)
		}
	}
	return secrets, nil
}
