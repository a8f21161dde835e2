package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/vesselcost/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (enrichment disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config.
// A disabled configuration yields an empty provider.
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	provider := modelConfig.Provider
	if !modelConfig.Enabled {
		provider = ""
	}
	return Config{
		Provider:   provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}
}

// DefaultModel returns the model used for a provider when none is configured
func DefaultModel(provider string, mode model.EnrichmentMode) string {
	switch strings.ToLower(provider) {
	case "openai":
		if mode == model.ModeFull {
			return "gpt-4o"
		}
		return "gpt-3.5-turbo"
	case "anthropic", "claude":
		if mode == model.ModeFull {
			return "claude-3-5-sonnet-20241022"
		}
		return "claude-3-5-haiku-20241022"
	default:
		// Ollama has no sensible default; the model must be configured
		return ""
	}
}
