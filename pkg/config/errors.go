package config

import "errors"

var (
	// ErrConfigNotFound indicates the policies file was not found.
	ErrConfigNotFound = errors.New("config: policies file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("config: invalid yaml")

	// ErrValidationFailed indicates the loaded policies failed validation.
	ErrValidationFailed = errors.New("config: validation failed")

	// ErrMissingSecret indicates a required environment-provided secret was
	// absent, which is a hard start-up failure.
	ErrMissingSecret = errors.New("config: missing required secret")
)
