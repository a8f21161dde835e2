package llm

import (
	"context"
	"errors"
	"time"
)

// ErrMalformedResponse is returned when a reply cannot be read as an enrichment
var ErrMalformedResponse = errors.New("malformed enrichment response")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw reply text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Check verifies the provider is configured and reachable
	Check(ctx context.Context) error
}

// CompletionRequest is a single prompt/response exchange
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // Empty uses the provider's configured model
	MaxTokens int
	JSON      bool // Ask for a JSON object reply where the API supports it
}

// CompletionResponse holds the raw reply
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "" (disabled)
	Provider string

	// Model name (provider-specific); empty picks the mode default
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for one enrichment call
	Timeout int // seconds

	// MaxTokens overrides the mode's token budget
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "", // Disabled by default
		Timeout:  30,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
