package worker

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"github.com/corral-dev/corral/api/proto"
	"github.com/corral-dev/corral/pkg/types"
)

const (
	maxReconnectBackoff = 60 * time.Second

	// healthySession is how long a stream must stay up before a later
	// drop restarts the backoff schedule from the beginning.
	healthySession = 10 * time.Second
)

// pullLoop keeps one Pull stream open against the lease service and
// re-dials with exponential backoff when it drops.
func (w *Worker) pullLoop() {
	attempt := 0
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		start := time.Now()
		if err := w.pullStream(); err != nil {
			if time.Since(start) >= healthySession {
				attempt = 0
			}
			attempt++
			delay := reconnectBackoff(attempt)
			w.logger.Warn().Err(err).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("pull stream closed, reconnecting")
			select {
			case <-time.After(delay):
			case <-w.stopCh:
				return
			}
			continue
		}
		attempt = 0
	}
}

// pullStream opens one stream and consumes leases until it breaks. A nil
// return means the worker is stopping.
func (w *Worker) pullStream() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-w.stopCh
		cancel()
	}()

	// Ask for the free slot count; runs still in flight from a previous
	// stream keep their semaphore slots.
	free := w.cfg.MaxConcurrentLeases - w.active.Load()
	if free < 1 {
		free = 1
	}
	stream, err := w.leases.Pull(ctx, &proto.PullRequest{
		NodeId:    w.cfg.NodeID,
		MaxLeases: int32(free),
	})
	if err != nil {
		return err
	}
	w.logger.Debug().Msg("pull stream open")

	for {
		lease, err := stream.Recv()
		if err != nil {
			select {
			case <-w.stopCh:
				return nil
			default:
				return err
			}
		}
		// Hold a slot before acking: an acked lease we cannot run yet
		// would just burn toward expiry.
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		if !w.ack(ctx, lease) {
			w.sem.Release(1)
			continue
		}
		w.active.Add(1)
		w.wg.Add(1)
		go w.handleLease(lease)
	}
}

func (w *Worker) ack(ctx context.Context, lease *proto.Lease) bool {
	ackCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := w.leases.Ack(ackCtx, &proto.AckRequest{
		LeaseId: lease.LeaseId,
		RunId:   lease.RunId,
		NodeId:  w.cfg.NodeID,
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("runId", lease.RunId).Msg("ack failed")
		return false
	}
	if !resp.Ok {
		w.logger.Warn().
			Str("runId", lease.RunId).
			Str("reason", resp.Message).
			Msg("ack rejected")
		return false
	}
	return true
}

// handleLease runs one leased invocation through the pipeline and reports
// the outcome. The deadline comes from the agent's duration budget, not
// the lease expiry: a keepalive renews the lease while the run executes,
// so runs longer than one lease TTL are not reclaimed mid-flight.
func (w *Worker) handleLease(lease *proto.Lease) {
	defer func() {
		w.active.Add(-1)
		w.sem.Release(1)
		w.wg.Done()
	}()
	logger := w.logger.With().Str("runId", lease.RunId).Logger()

	var agent types.Agent
	if err := json.Unmarshal(lease.AgentSpec, &agent); err != nil {
		logger.Error().Err(err).Msg("undecodable agent spec")
		w.fail(lease, "undecodable agent spec", err.Error(), false, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.runDeadline(&agent))
	defer cancel()

	stopKeepalive := w.keepAlive(ctx, cancel, lease)
	defer stopKeepalive()

	outcome, err := w.pipeline.Process(ctx, lease.RunId, &agent)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline error")
		w.fail(lease, "pipeline error", err.Error(), true, nil)
		return
	}

	if outcome.Completed {
		w.complete(lease, outcome)
		return
	}
	logger.Info().
		Str("error", outcome.ErrorMessage).
		Bool("retryable", outcome.Retryable).
		Msg("run failed")
	w.fail(lease, outcome.ErrorMessage, outcome.ErrorDetails, outcome.Retryable, outcome.Timings)
}

// runDeadline bounds one leased run: the agent's execution budget plus
// slack for the input receive and output delivery legs.
func (w *Worker) runDeadline(agent *types.Agent) time.Duration {
	return w.pipeline.MaxDuration(agent) + w.pipeline.cfg.ReceiveTimeout + 15*time.Second
}

// keepAlive renews the lease on a cadence derived from its TTL until the
// returned stop function is called. A rejected renewal means the lease was
// lost, so the run's context is cancelled to stop the work.
func (w *Worker) keepAlive(ctx context.Context, cancel context.CancelFunc, lease *proto.Lease) func() {
	interval := renewInterval(time.Until(time.UnixMilli(lease.ExpiresAt)))
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				extendCtx, extendCancel := context.WithTimeout(ctx, 5*time.Second)
				resp, err := w.leases.Extend(extendCtx, &proto.ExtendRequest{
					LeaseId: lease.LeaseId,
					RunId:   lease.RunId,
					NodeId:  w.cfg.NodeID,
				})
				extendCancel()
				if err != nil {
					// Transient; the next tick retries well before expiry.
					w.logger.Warn().Err(err).Str("runId", lease.RunId).Msg("lease renewal failed")
					continue
				}
				if !resp.Ok {
					w.logger.Warn().Str("runId", lease.RunId).Msg("lease lost, stopping run")
					cancel()
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// renewInterval is a third of the lease TTL, clamped so renewals always
// land well before expiry without hammering the control plane.
func renewInterval(ttl time.Duration) time.Duration {
	interval := ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 15*time.Second {
		interval = 15 * time.Second
	}
	return interval
}

func (w *Worker) complete(lease *proto.Lease, outcome *Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := w.leases.Complete(ctx, &proto.CompleteRequest{
		LeaseId: lease.LeaseId,
		RunId:   lease.RunId,
		NodeId:  w.cfg.NodeID,
		Timings: outcome.Timings,
		Costs: &proto.Costs{
			TokensIn:  outcome.TokensIn,
			TokensOut: outcome.TokensOut,
			Usd:       outcome.USDCost,
		},
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("runId", lease.RunId).Msg("complete failed")
	}
}

func (w *Worker) fail(lease *proto.Lease, msg, details string, retryable bool, timings map[string]int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := w.leases.Fail(ctx, &proto.FailRequest{
		LeaseId:      lease.LeaseId,
		RunId:        lease.RunId,
		NodeId:       w.cfg.NodeID,
		ErrorMessage: msg,
		ErrorDetails: details,
		Retryable:    retryable,
		Timings:      timings,
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("runId", lease.RunId).Msg("fail report failed")
		return
	}
	if resp.ShouldRetry {
		w.logger.Debug().Str("runId", lease.RunId).Msg("run requeued for retry")
	}
}

// reconnectBackoff is 2^attempt seconds capped at maxReconnectBackoff,
// plus up to two seconds of jitter.
func reconnectBackoff(attempt int) time.Duration {
	secs := math.Min(math.Pow(2, float64(attempt)), maxReconnectBackoff.Seconds())
	jitter := time.Duration(rand.Int63n(int64(2 * time.Second)))
	return time.Duration(secs)*time.Second + jitter
}
