package llm

import (
	"context"

	"github.com/corral-dev/corral/pkg/errdefs"
)

// Options tunes a single model invocation.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Result is the model's reply plus its token accounting.
type Result struct {
	Text      string
	TokensIn  int64
	TokensOut int64
}

// ChatClient is a minimal chat-completion interface over one provider.
type ChatClient interface {
	Invoke(ctx context.Context, systemPrompt, userInput string, opts Options) (*Result, error)
}

// ProviderConfig selects and authenticates a provider.
type ProviderConfig struct {
	Provider string // "openai", "azure" or "anthropic"
	APIKey   string
	Endpoint string // Azure resource endpoint
	APIVer   string // Azure API version
}

// NewChatClient builds the provider client named by cfg, wrapped in a
// circuit breaker.
func NewChatClient(cfg ProviderConfig) (ChatClient, error) {
	var inner ChatClient
	switch cfg.Provider {
	case "openai", "":
		inner = NewOpenAIClient(cfg.APIKey)
	case "azure":
		client, err := NewAzureClient(cfg.Endpoint, cfg.APIVer, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		inner = client
	case "anthropic":
		inner = NewAnthropicClient(cfg.APIKey)
	default:
		return nil, errdefs.Validationf("unknown llm provider %q", cfg.Provider)
	}
	return NewBreakerClient(inner), nil
}
