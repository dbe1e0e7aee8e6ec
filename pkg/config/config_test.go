package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnv(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 20*time.Second, cfg.LLM.LLMTimeout())
	assert.Equal(t, 10*time.Second, cfg.Router.Timeout())
	assert.Equal(t, 3, cfg.Healer.MaxRetries)
	assert.Equal(t, 5, cfg.Profile.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("HEALER_MAX_RETRIES", "5")

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Healer.MaxRetries)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")
	_, err := Load("dev")
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("HEALER_MAX_RETRIES", "0")
	_, err = Load("dev")
	assert.Error(t, err)
}
