package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/corral-dev/corral/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	gotOpts llm.Options
	result  *llm.Result
	block   bool
}

func (s *stubChat) Invoke(ctx context.Context, systemPrompt, userInput string, opts llm.Options) (*llm.Result, error) {
	s.gotOpts = opts
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.result, nil
}

func runChild(t *testing.T, req *Request, client llm.ChatClient) *Response {
	t.Helper()
	in, err := json.Marshal(req)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, RunChild(context.Background(), bytes.NewReader(in), &out, client))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return &resp
}

func TestRunChildSuccess(t *testing.T) {
	chat := &stubChat{result: &llm.Result{Text: "done", TokensIn: 100, TokensOut: 50}}
	resp := runChild(t, &Request{
		AgentID:            "agent-1",
		Instructions:       "summarize",
		Input:              "a long document",
		MaxDurationSeconds: 10,
		ModelProfile: map[string]any{
			"model":       "gpt-4o",
			"temperature": 0.3,
			"maxTokens":   float64(2000),
		},
	}, chat)

	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Output)
	assert.Equal(t, int64(100), resp.TokensIn)
	assert.Equal(t, int64(50), resp.TokensOut)
	assert.InDelta(t, llm.EstimateCost(100, 50), resp.USDCost, 1e-9)

	assert.Equal(t, "gpt-4o", chat.gotOpts.Model)
	assert.Equal(t, 0.3, chat.gotOpts.Temperature)
	assert.Equal(t, 2000, chat.gotOpts.MaxTokens)
}

func TestRunChildBudgetExceeded(t *testing.T) {
	chat := &stubChat{block: true}
	start := time.Now()
	resp := runChild(t, &Request{
		AgentID:            "agent-1",
		MaxDurationSeconds: 1,
	}, chat)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "exceeded maximum duration")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunChildMalformedRequest(t *testing.T) {
	var out bytes.Buffer
	err := RunChild(context.Background(), strings.NewReader("{broken"), &out, &stubChat{})
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "decode request")
}
