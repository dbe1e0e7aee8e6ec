package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/config"
)

// NewFromConfig builds the configured provider's client.
func NewFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (Client, error) {
	clientCfg := &Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
