package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempPolicies(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitialize_MergesOverDefaults(t *testing.T) {
	path := writeTempPolicies(t, "concurrency:\n  llm: 7\n  geocode: 10\n  spam_llm: 3\n")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PII_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Initialize(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Concurrency.LLM)
	assert.Equal(t, Defaults.ScoringWeights, cfg.ScoringWeights)
}

func TestInitialize_ExpandsEnvVarsInYAML(t *testing.T) {
	t.Setenv("HOME_COUNTRY", "Kazakhstan")
	path := writeTempPolicies(t, "concurrency:\n  llm: 5\n  geocode: 10\n  spam_llm: 3\nscoring_extras:\n  home_country: ${HOME_COUNTRY}\n")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PII_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Initialize(path)
	require.NoError(t, err)
	assert.Equal(t, "Kazakhstan", cfg.ScoringExtras.HomeCountry)
}

func TestInitialize_MissingRequiredSecretFailsStartup(t *testing.T) {
	path := writeTempPolicies(t, "concurrency:\n  llm: 5\n  geocode: 10\n  spam_llm: 3\n")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PII_ENCRYPTION_KEY", "")

	_, err := Initialize(path)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestInitialize_MissingFileReturnsNotFound(t *testing.T) {
	_, err := Initialize(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
