package llm

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/corral-dev/corral/pkg/errdefs"
)

// messagesClient captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements ChatClient via the Claude Messages API.
type AnthropicClient struct {
	msg messagesClient
}

// NewAnthropicClient creates a client against api.anthropic.com.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{msg: &client.Messages}
}

func (c *AnthropicClient) Invoke(ctx context.Context, systemPrompt, userInput string, opts Options) (*Result, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(opts.Model),
		MaxTokens: int64(maxTokens),
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userInput)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("messages call: %w", err))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	result := &Result{
		Text:      sb.String(),
		TokensIn:  msg.Usage.InputTokens,
		TokensOut: msg.Usage.OutputTokens,
	}
	if result.TokensIn == 0 {
		result.TokensIn = EstimateTokens(systemPrompt) + EstimateTokens(userInput)
	}
	if result.TokensOut == 0 {
		result.TokensOut = EstimateTokens(result.Text)
	}
	return result, nil
}
