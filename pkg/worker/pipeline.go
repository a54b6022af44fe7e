package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/connector"
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/executor"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/redis/go-redis/v9"
)

// agentRunner abstracts the child-process executor for tests.
type agentRunner interface {
	Execute(ctx context.Context, req *executor.Request) (*executor.Response, error)
}

// PipelineConfig tunes message handling and fills agent runtime defaults.
type PipelineConfig struct {
	// MaxDeliveryCount is the poison threshold: a message seen more times
	// than this is dead-lettered without another invocation.
	MaxDeliveryCount int

	// ReceiveTimeout bounds the wait for an input message.
	ReceiveTimeout time.Duration

	// Prefetch caps how many messages one receive may claim from the
	// input stream.
	Prefetch int

	// DefaultModel is invoked when an agent's model profile names none.
	DefaultModel string

	// DefaultTemperature fills a profile with no temperature. Zero means
	// leave the provider's own default in place.
	DefaultTemperature float64

	// DefaultMaxTokens fills a profile with no token cap.
	DefaultMaxTokens int

	// DefaultMaxDurationSeconds bounds runs whose budget sets no duration.
	DefaultMaxDurationSeconds int
}

// Pipeline drives one run from input message to delivered output. It owns
// connector construction from the agent's wiring and the classification of
// every failure into ack, abandon or dead-letter.
type Pipeline struct {
	redis redis.UniversalClient
	exec  agentRunner
	cfg   PipelineConfig

	// factories, swapped in tests
	newInput func(agent *types.Agent) (connector.InputConnector, error)
	newSink  func(agent *types.Agent) (connector.OutputConnector, error)
}

// NewPipeline creates a pipeline using rdb for queue connectors and exec
// for agent invocations.
func NewPipeline(rdb redis.UniversalClient, exec agentRunner, cfg PipelineConfig) *Pipeline {
	if cfg.MaxDeliveryCount <= 0 {
		cfg.MaxDeliveryCount = 3
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 5 * time.Second
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 4000
	}
	if cfg.DefaultMaxDurationSeconds <= 0 {
		cfg.DefaultMaxDurationSeconds = 60
	}
	p := &Pipeline{redis: rdb, exec: exec, cfg: cfg}
	p.newInput = p.buildInput
	p.newSink = p.buildSink
	return p
}

// Outcome is the pipeline's verdict on one run, translated by the worker
// into a Complete or Fail call against the control plane.
type Outcome struct {
	Completed bool
	Timings   map[string]int64
	TokensIn  int64
	TokensOut int64
	USDCost   float64

	// set when Completed is false
	ErrorMessage string
	ErrorDetails string
	Retryable    bool
}

func failed(msg, details string, retryable bool) *Outcome {
	return &Outcome{ErrorMessage: msg, ErrorDetails: details, Retryable: retryable}
}

// Process executes one run of agent identified by runID. The returned
// Outcome is always non-nil; an error return means the pipeline itself
// broke and the lease should be failed retryable.
func (p *Pipeline) Process(ctx context.Context, runID string, agent *types.Agent) (*Outcome, error) {
	logger := log.WithRunID(runID)

	input, err := p.newInput(agent)
	if err != nil {
		metrics.MessagesDeadLettered.WithLabelValues(string(connector.ReasonAgentConfigurationError)).Inc()
		return failed("invalid agent configuration", err.Error(), false), nil
	}
	defer input.Close()

	sink, err := p.newSink(agent)
	if err != nil {
		metrics.MessagesDeadLettered.WithLabelValues(string(connector.ReasonAgentConfigurationError)).Inc()
		return failed("invalid agent configuration", err.Error(), false), nil
	}
	defer sink.Close()

	recvStart := time.Now()
	recvCtx, cancel := context.WithTimeout(ctx, p.cfg.ReceiveTimeout)
	msgs, err := input.Receive(recvCtx, 1)
	cancel()
	receiveMs := time.Since(recvStart).Milliseconds()
	if err != nil {
		return failed("input receive failed", err.Error(), true), nil
	}
	if len(msgs) == 0 {
		return failed("no input available", "", true), nil
	}
	msg := msgs[0]
	msgLogger := logger.With().Str("messageId", msg.ID).Logger()

	// Poison check before spending an invocation on it.
	if msg.DeliveryCount > p.cfg.MaxDeliveryCount {
		msgLogger.Warn().
			Int("deliveryCount", msg.DeliveryCount).
			Msg("message exceeded delivery count, dead-lettering")
		p.deadLetter(ctx, input, msg, connector.ReasonPoisonMessage,
			fmt.Sprintf("delivered %d times, max %d", msg.DeliveryCount, p.cfg.MaxDeliveryCount))
		metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
		return &Outcome{
			Completed: true,
			Timings:   map[string]int64{"receiveMs": receiveMs},
		}, nil
	}

	userInput, err := decodeInput(msg.Body)
	if err != nil {
		// Undecodable input dead-letters the message and fails the run
		// terminally; retrying cannot make the bytes parse.
		p.deadLetter(ctx, input, msg, connector.ReasonDeserializationError, err.Error())
		metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
		out := failed("input deserialization failed", err.Error(), false)
		out.Timings = map[string]int64{"receiveMs": receiveMs}
		return out, nil
	}

	execStart := time.Now()
	resp, err := p.exec.Execute(ctx, p.buildRequest(agent, userInput))
	executeMs := time.Since(execStart).Milliseconds()
	metrics.AgentInvocationDuration.Observe(time.Since(execStart).Seconds())

	timings := map[string]int64{"receiveMs": receiveMs, "executeMs": executeMs}

	if err != nil {
		if errdefs.IsNonRetryable(err) || errdefs.IsValidation(err) {
			p.deadLetter(ctx, input, msg, connector.ReasonNonRetryableError, err.Error())
			metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
			out := failed("agent execution failed", err.Error(), false)
			out.Timings = timings
			return out, nil
		}
		p.abandonOrDeadLetter(ctx, input, msg)
		out := failed("agent execution failed", err.Error(), true)
		out.Timings = timings
		return out, nil
	}

	metrics.TokensConsumed.WithLabelValues("in").Add(float64(resp.TokensIn))
	metrics.TokensConsumed.WithLabelValues("out").Add(float64(resp.TokensOut))

	if !resp.Success {
		retryable := RetryableError(resp.Error)
		if retryable {
			p.abandonOrDeadLetter(ctx, input, msg)
		} else {
			p.deadLetter(ctx, input, msg, connector.ReasonNonRetryableError, resp.Error)
			metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
		}
		out := failed("agent reported failure", resp.Error, retryable)
		out.Timings = timings
		out.TokensIn = resp.TokensIn
		out.TokensOut = resp.TokensOut
		out.USDCost = resp.USDCost
		return out, nil
	}

	deliverStart := time.Now()
	err = sink.Deliver(ctx, runID, msg.ID, []byte(resp.Output))
	timings["deliverMs"] = time.Since(deliverStart).Milliseconds()
	if err != nil {
		if errdefs.IsNonRetryable(err) {
			p.deadLetter(ctx, input, msg, connector.ReasonNonRetryableError,
				fmt.Sprintf("output rejected: %v", err))
			metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
			out := failed("output delivery rejected", err.Error(), false)
			out.Timings = timings
			return out, nil
		}
		p.abandonOrDeadLetter(ctx, input, msg)
		out := failed("output delivery failed", err.Error(), true)
		out.Timings = timings
		return out, nil
	}

	if err := input.Ack(ctx, msg); err != nil {
		// Output is already delivered; the idempotency key makes the
		// eventual redelivery harmless. Log and move on.
		msgLogger.Warn().Err(err).Msg("ack failed after delivery")
	}
	metrics.MessagesProcessed.WithLabelValues("completed").Inc()

	return &Outcome{
		Completed: true,
		Timings:   timings,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		USDCost:   resp.USDCost,
	}, nil
}

func (p *Pipeline) deadLetter(ctx context.Context, input connector.InputConnector, msg *connector.Message, reason connector.DeadLetterReason, detail string) {
	metrics.MessagesDeadLettered.WithLabelValues(string(reason)).Inc()
	if err := input.DeadLetter(ctx, msg, reason, detail); err != nil {
		log.WithComponent("worker").Error().Err(err).
			Str("messageId", msg.ID).
			Str("reason", string(reason)).
			Msg("dead-letter failed")
	}
}

// abandonOrDeadLetter returns a message for redelivery unless this attempt
// already used its last delivery, in which case redelivering would only
// bounce it straight back to the poison check.
func (p *Pipeline) abandonOrDeadLetter(ctx context.Context, input connector.InputConnector, msg *connector.Message) {
	if msg.DeliveryCount >= p.cfg.MaxDeliveryCount {
		p.deadLetter(ctx, input, msg, connector.ReasonMaxDeliveryCountExceeded,
			fmt.Sprintf("delivery %d of %d failed", msg.DeliveryCount, p.cfg.MaxDeliveryCount))
		metrics.MessagesProcessed.WithLabelValues("dead_lettered").Inc()
		return
	}
	if err := input.Abandon(ctx, msg); err != nil {
		log.WithComponent("worker").Warn().Err(err).
			Str("messageId", msg.ID).
			Msg("abandon failed")
	}
	metrics.MessagesProcessed.WithLabelValues("abandoned").Inc()
}

// buildInput constructs the agent's input connector. Queue input rides on
// Redis Streams; other connector types are not yet wired on the worker.
func (p *Pipeline) buildInput(agent *types.Agent) (connector.InputConnector, error) {
	if agent.Input == nil {
		return nil, errdefs.Validationf("agent %s has no input connector", agent.ID)
	}
	switch agent.Input.Type {
	case types.ConnectorServiceBus, types.ConnectorKafka:
		stream := agent.Input.Settings["stream"]
		if stream == "" {
			stream = agent.Input.Settings["queue"]
		}
		if stream == "" {
			return nil, errdefs.Validationf("input connector for agent %s names no stream", agent.ID)
		}
		return connector.NewStreamConnector(context.Background(), p.redis, connector.StreamConfig{
			Stream:   stream,
			Consumer: agent.ID,
			Prefetch: p.cfg.Prefetch,
		})
	default:
		return nil, errdefs.Validationf("unsupported input connector type %q", agent.Input.Type)
	}
}

// buildSink constructs the agent's output connector.
func (p *Pipeline) buildSink(agent *types.Agent) (connector.OutputConnector, error) {
	if agent.Output == nil {
		return nil, errdefs.Validationf("agent %s has no output connector", agent.ID)
	}
	switch agent.Output.Type {
	case types.ConnectorHTTP:
		return connector.NewHTTPSink(connector.HTTPSinkConfig{
			URL: agent.Output.Settings["url"],
		})
	default:
		return nil, errdefs.Validationf("unsupported output connector type %q", agent.Output.Type)
	}
}

// decodeInput extracts the agent's user input from a message body. Bodies
// are either a JSON object with an "input" field or treated as raw text.
func decodeInput(body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty message body")
	}
	var envelope struct {
		Input *string `json:"input"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Input != nil {
		return *envelope.Input, nil
	}
	return string(body), nil
}

// buildRequest assembles the executor request, filling runtime defaults
// into a copy of the model profile. The agent's own profile always wins.
func (p *Pipeline) buildRequest(agent *types.Agent, input string) *executor.Request {
	profile := make(map[string]any, len(agent.ModelProfile)+3)
	for k, v := range agent.ModelProfile {
		profile[k] = v
	}
	if s, _ := profile["model"].(string); s == "" && p.cfg.DefaultModel != "" {
		profile["model"] = p.cfg.DefaultModel
	}
	if _, ok := profile["temperature"]; !ok && p.cfg.DefaultTemperature > 0 {
		profile["temperature"] = p.cfg.DefaultTemperature
	}
	if _, ok := profile["maxTokens"]; !ok {
		profile["maxTokens"] = float64(p.cfg.DefaultMaxTokens)
	}

	req := &executor.Request{
		AgentID:      agent.ID,
		Name:         agent.Name,
		Instructions: agent.Instructions,
		Input:        input,
		ModelProfile: profile,
	}
	if agent.Budget != nil {
		req.MaxTokens = agent.Budget.MaxTokens
		req.MaxDurationSeconds = agent.Budget.MaxDurationSeconds
	}
	if req.MaxDurationSeconds <= 0 {
		req.MaxDurationSeconds = p.cfg.DefaultMaxDurationSeconds
	}
	return req
}

// MaxDuration is the execution bound buildRequest will hand the agent,
// used by the worker to size the run's deadline.
func (p *Pipeline) MaxDuration(agent *types.Agent) time.Duration {
	secs := p.cfg.DefaultMaxDurationSeconds
	if agent.Budget != nil && agent.Budget.MaxDurationSeconds > 0 {
		secs = agent.Budget.MaxDurationSeconds
	}
	return time.Duration(secs) * time.Second
}
