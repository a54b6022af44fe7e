package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/corral-dev/corral/pkg/connector"
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/executor"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	gotReq *executor.Request
	resp   *executor.Response
	err    error
}

func (s *stubRunner) Execute(ctx context.Context, req *executor.Request) (*executor.Response, error) {
	s.gotReq = req
	return s.resp, s.err
}

type fakeInput struct {
	msgs []*connector.Message

	acked       []*connector.Message
	abandoned   []*connector.Message
	deadLetters []connector.DeadLetterReason
}

func (f *fakeInput) Receive(ctx context.Context, max int) ([]*connector.Message, error) {
	out := f.msgs
	f.msgs = nil
	return out, nil
}

func (f *fakeInput) Ack(ctx context.Context, msg *connector.Message) error {
	f.acked = append(f.acked, msg)
	return nil
}

func (f *fakeInput) Abandon(ctx context.Context, msg *connector.Message) error {
	f.abandoned = append(f.abandoned, msg)
	return nil
}

func (f *fakeInput) DeadLetter(ctx context.Context, msg *connector.Message, reason connector.DeadLetterReason, detail string) error {
	f.deadLetters = append(f.deadLetters, reason)
	return nil
}

func (f *fakeInput) Close() error { return nil }

type fakeSink struct {
	delivered [][]byte
	err       error
}

func (f *fakeSink) Deliver(ctx context.Context, runID, messageID string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, payload)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func testAgent() *types.Agent {
	return &types.Agent{
		ID:           "agent-1",
		Name:         "classifier",
		Instructions: "classify the document",
		Input: &types.ConnectorConfig{
			Type:     types.ConnectorServiceBus,
			Settings: map[string]string{"stream": "docs"},
		},
		Output: &types.ConnectorConfig{
			Type:     types.ConnectorHTTP,
			Settings: map[string]string{"url": "http://sink.invalid/results"},
		},
		ModelProfile: map[string]any{"model": "gpt-4o"},
		Budget:       &types.Budget{MaxTokens: 1000, MaxDurationSeconds: 30},
	}
}

func fakePipeline(runner agentRunner, input *fakeInput, sink *fakeSink) *Pipeline {
	p := NewPipeline(nil, runner, PipelineConfig{MaxDeliveryCount: 3})
	p.newInput = func(*types.Agent) (connector.InputConnector, error) { return input, nil }
	p.newSink = func(*types.Agent) (connector.OutputConnector, error) { return sink, nil }
	return p
}

func msg(id string, body string, deliveries int) *connector.Message {
	return &connector.Message{ID: id, Body: []byte(body), DeliveryCount: deliveries}
}

func TestPipelineCompletes(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{
		Success: true, Output: `{"class":"invoice"}`,
		TokensIn: 120, TokensOut: 30, USDCost: 0.005, DurationMs: 40,
	}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", `{"input":"doc text"}`, 1)}}
	sink := &fakeSink{}

	out, err := fakePipeline(runner, input, sink).Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, int64(120), out.TokensIn)
	assert.Equal(t, int64(30), out.TokensOut)
	assert.Contains(t, out.Timings, "executeMs")
	assert.Contains(t, out.Timings, "deliverMs")

	require.Len(t, sink.delivered, 1)
	assert.Equal(t, `{"class":"invoice"}`, string(sink.delivered[0]))
	assert.Len(t, input.acked, 1)
	assert.Empty(t, input.abandoned)
	assert.Empty(t, input.deadLetters)

	assert.Equal(t, "doc text", runner.gotReq.Input)
	assert.Equal(t, "classify the document", runner.gotReq.Instructions)
	assert.Equal(t, 30, runner.gotReq.MaxDurationSeconds)
}

func TestPipelineNoInputFailsRetryable(t *testing.T) {
	input := &fakeInput{}
	out, err := fakePipeline(&stubRunner{}, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.True(t, out.Retryable)
	assert.Equal(t, "no input available", out.ErrorMessage)
}

func TestPipelinePoisonDeadLetters(t *testing.T) {
	runner := &stubRunner{}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 4)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	// The run completes: the poison message is out of circulation and
	// nothing is left to retry.
	assert.True(t, out.Completed)
	require.Len(t, input.deadLetters, 1)
	assert.Equal(t, connector.ReasonPoisonMessage, input.deadLetters[0])
	assert.Nil(t, runner.gotReq, "poison message must not be invoked")
}

func TestPipelineLastDeliveryDeadLettersInsteadOfAbandon(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{
		Success: false, Error: "provider returned 503",
	}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 3)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.True(t, out.Retryable)
	assert.Empty(t, input.abandoned)
	require.Len(t, input.deadLetters, 1)
	assert.Equal(t, connector.ReasonMaxDeliveryCountExceeded, input.deadLetters[0])
}

func TestPipelineAgentTimeoutDeadLetters(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{
		Success: false, Error: "agent exceeded maximum duration of 30s",
	}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 1)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.False(t, out.Retryable)
	require.Len(t, input.deadLetters, 1)
	assert.Equal(t, connector.ReasonNonRetryableError, input.deadLetters[0])
}

func TestPipelineTransientAgentErrorAbandons(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{
		Success: false, Error: "provider returned 503",
	}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 1)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.True(t, out.Retryable)
	assert.Len(t, input.abandoned, 1)
	assert.Empty(t, input.deadLetters)
}

func TestPipelineExecutorTransientErrorAbandons(t *testing.T) {
	runner := &stubRunner{err: errdefs.Transientf("spawn failed")}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 1)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.True(t, out.Retryable)
	assert.Len(t, input.abandoned, 1)
}

func TestPipelineSinkRejectionDeadLetters(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{Success: true, Output: "result"}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "body", 1)}}
	sink := &fakeSink{err: errdefs.NonRetryablef("sink rejected payload")}

	out, err := fakePipeline(runner, input, sink).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.False(t, out.Retryable)
	require.Len(t, input.deadLetters, 1)
	assert.Equal(t, connector.ReasonNonRetryableError, input.deadLetters[0])
	assert.Empty(t, input.acked)
}

func TestPipelineEmptyBodyDeadLetters(t *testing.T) {
	runner := &stubRunner{}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", "", 1)}}

	out, err := fakePipeline(runner, input, &fakeSink{}).
		Process(context.Background(), "run-1", testAgent())
	require.NoError(t, err)
	// The input is dead-lettered and the run fails terminally; a retry
	// would only meet the same undecodable bytes.
	assert.False(t, out.Completed)
	assert.False(t, out.Retryable)
	assert.Equal(t, "input deserialization failed", out.ErrorMessage)
	require.Len(t, input.deadLetters, 1)
	assert.Equal(t, connector.ReasonDeserializationError, input.deadLetters[0])
	assert.Nil(t, runner.gotReq, "undecodable input must not be invoked")
}

func TestPipelineFillsRuntimeDefaults(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{Success: true, Output: "ok"}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", `{"input":"doc"}`, 1)}}

	agent := testAgent()
	agent.ModelProfile = nil
	agent.Budget = nil

	p := NewPipeline(nil, runner, PipelineConfig{
		DefaultModel:              "gpt-4o-mini",
		DefaultTemperature:        0.7,
		DefaultMaxTokens:          4000,
		DefaultMaxDurationSeconds: 60,
	})
	p.newInput = func(*types.Agent) (connector.InputConnector, error) { return input, nil }
	p.newSink = func(*types.Agent) (connector.OutputConnector, error) { return &fakeSink{}, nil }

	out, err := p.Process(context.Background(), "run-1", agent)
	require.NoError(t, err)
	assert.True(t, out.Completed)

	require.NotNil(t, runner.gotReq)
	assert.Equal(t, "gpt-4o-mini", runner.gotReq.ModelProfile["model"])
	assert.Equal(t, 0.7, runner.gotReq.ModelProfile["temperature"])
	assert.Equal(t, float64(4000), runner.gotReq.ModelProfile["maxTokens"])
	assert.Equal(t, 60, runner.gotReq.MaxDurationSeconds)
}

func TestPipelineAgentProfileWinsOverDefaults(t *testing.T) {
	runner := &stubRunner{resp: &executor.Response{Success: true, Output: "ok"}}
	input := &fakeInput{msgs: []*connector.Message{msg("m-1", `{"input":"doc"}`, 1)}}

	agent := testAgent()
	agent.ModelProfile = map[string]any{"model": "claude-sonnet-4", "temperature": 0.1}

	p := NewPipeline(nil, runner, PipelineConfig{
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.7,
	})
	p.newInput = func(*types.Agent) (connector.InputConnector, error) { return input, nil }
	p.newSink = func(*types.Agent) (connector.OutputConnector, error) { return &fakeSink{}, nil }

	_, err := p.Process(context.Background(), "run-1", agent)
	require.NoError(t, err)

	require.NotNil(t, runner.gotReq)
	assert.Equal(t, "claude-sonnet-4", runner.gotReq.ModelProfile["model"])
	assert.Equal(t, 0.1, runner.gotReq.ModelProfile["temperature"])
	// The agent's own profile map is left untouched.
	_, hasMax := agent.ModelProfile["maxTokens"]
	assert.False(t, hasMax)
}

func TestPipelineInvalidAgentConfig(t *testing.T) {
	agent := testAgent()
	agent.Input = nil

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewPipeline(rdb, &stubRunner{}, PipelineConfig{})

	out, err := p.Process(context.Background(), "run-1", agent)
	require.NoError(t, err)
	assert.False(t, out.Completed)
	assert.False(t, out.Retryable)
	assert.Equal(t, "invalid agent configuration", out.ErrorMessage)
}

// End-to-end over a real stream and HTTP sink.
func TestPipelineAgainstRealConnectors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	agent := testAgent()
	agent.Output.Settings["url"] = srv.URL

	feed, err := connector.NewStreamConnector(context.Background(), rdb, connector.StreamConfig{
		Stream: "docs", Consumer: "seed",
	})
	require.NoError(t, err)
	msgID, err := feed.Publish(context.Background(), []byte(`{"input":"hello"}`))
	require.NoError(t, err)

	runner := &stubRunner{resp: &executor.Response{Success: true, Output: "ok"}}
	p := NewPipeline(rdb, runner, PipelineConfig{})

	out, err := p.Process(context.Background(), "run-9", agent)
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, "run-9-"+msgID, gotKey)
}
