package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/corral-dev/corral/pkg/llm"
)

// RunChild is the child side of the executor protocol: read one Request
// from in, invoke the model within the duration budget and write exactly
// one Response line to out. It always writes a response, reporting its own
// failures with Success=false, and returns an error only when even that is
// impossible.
func RunChild(ctx context.Context, in io.Reader, out io.Writer, client llm.ChatClient) error {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return writeResponse(out, &Response{
			Success: false,
			Error:   fmt.Sprintf("decode request: %v", err),
		})
	}

	budget := time.Duration(req.MaxDurationSeconds) * time.Second
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	result, err := client.Invoke(ctx, req.Instructions, req.Input, invokeOptions(&req))
	elapsed := time.Since(start)

	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			msg = fmt.Sprintf("agent exceeded maximum duration of %ds", req.MaxDurationSeconds)
		}
		return writeResponse(out, &Response{
			Success:    false,
			Error:      msg,
			DurationMs: elapsed.Milliseconds(),
		})
	}

	return writeResponse(out, &Response{
		Success:    true,
		Output:     result.Text,
		TokensIn:   result.TokensIn,
		TokensOut:  result.TokensOut,
		DurationMs: elapsed.Milliseconds(),
		USDCost:    llm.EstimateCost(result.TokensIn, result.TokensOut),
	})
}

// invokeOptions maps the agent's model profile onto invocation options.
// Profiles are free-form JSON, so numbers arrive as float64.
func invokeOptions(req *Request) llm.Options {
	opts := llm.Options{MaxTokens: req.MaxTokens}
	if v, ok := req.ModelProfile["model"].(string); ok {
		opts.Model = v
	}
	if v, ok := req.ModelProfile["temperature"].(float64); ok {
		opts.Temperature = v
	}
	if v, ok := req.ModelProfile["maxTokens"].(float64); ok && opts.MaxTokens == 0 {
		opts.MaxTokens = int(v)
	}
	return opts
}

func writeResponse(out io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
