// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets (API keys) must only come from
// environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// DatabasePath is the DuckDB file holding the loaded spreadsheet
	// snapshots. Empty means in-memory.
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" env-default:"tablechat.duckdb"`

	// ProfilesPath is where the profile store snapshot is persisted.
	ProfilesPath string `yaml:"profiles_path" env:"PROFILES_PATH" env-default:"table_profiles.json"`

	// SessionsDir is where per-session conversation state is persisted.
	// Empty disables session persistence.
	SessionsDir string `yaml:"sessions_dir" env:"SESSIONS_DIR" env-default:""`

	Logging LoggingConfig `yaml:"logging"`
	LLM     LLMConfig     `yaml:"llm"`
	Router  RouterConfig  `yaml:"router"`
	Healer  HealerConfig  `yaml:"healer"`
	Profile ProfileConfig `yaml:"profile"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// File enables rotating file output when set.
	File       string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
}

// LLMConfig configures the planner/router/summary model endpoints.
type LLMConfig struct {
	// Provider selects the client implementation: openai or anthropic.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds bounds every LLM call; on expiry the caller falls back.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"20"`

	// MaxConcurrent bounds parallel LLM calls during profiling.
	MaxConcurrent int `yaml:"max_concurrent" env:"LLM_MAX_CONCURRENT" env-default:"8"`
}

// RouterConfig tunes table routing.
type RouterConfig struct {
	// UseLLM enables LLM semantic selection before the scoring fallback.
	UseLLM         bool `yaml:"use_llm" env:"ROUTER_USE_LLM" env-default:"true"`
	TimeoutSeconds int  `yaml:"timeout_seconds" env:"ROUTER_TIMEOUT_SECONDS" env-default:"10"`
}

// HealerConfig tunes SQL healing.
type HealerConfig struct {
	MaxRetries int `yaml:"max_retries" env:"HEALER_MAX_RETRIES" env-default:"3"`
}

// ProfileConfig tunes table profiling.
type ProfileConfig struct {
	// Workers bounds the profiling fan-out across tables.
	Workers int `yaml:"workers" env:"PROFILE_WORKERS" env-default:"5"`
	// UseLLMSummaries enables LLM-generated semantic summaries; the
	// rule-based summary is always the fallback.
	UseLLMSummaries bool `yaml:"use_llm_summaries" env:"PROFILE_USE_LLM_SUMMARIES" env-default:"false"`
	// SampleLimit bounds unique values kept per dimension column.
	SampleLimit int `yaml:"sample_limit" env:"PROFILE_SAMPLE_LIMIT" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Healer.MaxRetries < 1 {
		return fmt.Errorf("healer.max_retries must be >= 1, got %d", c.Healer.MaxRetries)
	}
	if c.Profile.Workers < 1 {
		return fmt.Errorf("profile.workers must be >= 1, got %d", c.Profile.Workers)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	return nil
}

// LLMTimeout returns the LLM call deadline as a duration.
func (c *LLMConfig) LLMTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the router selection deadline as a duration.
func (c *RouterConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
