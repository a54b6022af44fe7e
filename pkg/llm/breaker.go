package llm

import (
	"context"
	"errors"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/sony/gobreaker"
)

// BreakerClient wraps a ChatClient in a circuit breaker so a misbehaving
// provider sheds load fast instead of tying up worker slots on calls that
// are going to time out anyway.
type BreakerClient struct {
	inner ChatClient
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps inner. The breaker opens after 5 consecutive
// failures and lets a trial call through after 30 seconds.
func NewBreakerClient(inner ChatClient) *BreakerClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithComponent("llm").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return &BreakerClient{inner: inner, cb: cb}
}

func (c *BreakerClient) Invoke(ctx context.Context, systemPrompt, userInput string, opts Options) (*Result, error) {
	out, err := c.cb.Execute(func() (any, error) {
		return c.inner.Invoke(ctx, systemPrompt, userInput, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errdefs.Transientf("llm circuit breaker open")
		}
		return nil, err
	}
	return out.(*Result), nil
}
