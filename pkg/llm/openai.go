package llm

import (
	"context"
	"fmt"

	"github.com/corral-dev/corral/pkg/errdefs"
	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter captures the subset of the go-openai client we use, so
// tests can substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// OpenAIClient implements ChatClient via the OpenAI Chat Completions API.
// The same client serves Azure AI Foundry deployments through the Azure
// config.
type OpenAIClient struct {
	chat chatCompleter
}

// NewOpenAIClient creates a client against api.openai.com.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{chat: openai.NewClient(apiKey)}
}

// NewAzureClient creates a client against an Azure AI Foundry endpoint.
func NewAzureClient(endpoint, apiVersion, apiKey string) (*OpenAIClient, error) {
	if endpoint == "" {
		return nil, errdefs.Validationf("azure endpoint must not be empty")
	}
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	return &OpenAIClient{chat: openai.NewClientWithConfig(cfg)}, nil
}

func (c *OpenAIClient) Invoke(ctx context.Context, systemPrompt, userInput string, opts Options) (*Result, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userInput},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, errdefs.Transientf("chat completion returned no choices")
	}

	result := &Result{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  int64(resp.Usage.PromptTokens),
		TokensOut: int64(resp.Usage.CompletionTokens),
	}
	// Some gateways omit usage; fall back to the size heuristic.
	if result.TokensIn == 0 {
		result.TokensIn = EstimateTokens(systemPrompt) + EstimateTokens(userInput)
	}
	if result.TokensOut == 0 {
		result.TokensOut = EstimateTokens(result.Text)
	}
	return result, nil
}
