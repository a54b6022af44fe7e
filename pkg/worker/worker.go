package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corral-dev/corral/api/proto"
	"github.com/corral-dev/corral/pkg/client"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"
)

const (
	// DefaultMaxConcurrentLeases bounds invocations in flight per worker.
	DefaultMaxConcurrentLeases = 5

	// DefaultHeartbeatInterval is how often the worker reports in.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultDrainTimeout bounds how long Stop waits for in-flight runs.
	DefaultDrainTimeout = 30 * time.Second

	// missedHeartbeatWarn is the consecutive-failure count that escalates
	// heartbeat errors from debug to warn.
	missedHeartbeatWarn = 3
)

// Config holds worker configuration.
type Config struct {
	NodeID              string
	ControlPlaneURL     string // REST base URL, for register/heartbeat
	LeaseAddr           string // gRPC address of the lease service
	Slots               int    // advertised capacity
	MaxConcurrentLeases int64
	HeartbeatInterval   time.Duration
	DrainTimeout        time.Duration
	Metadata            map[string]string // placement labels
}

// Worker is a node runtime: it registers with the control plane, holds a
// pull stream open for leases and runs each leased invocation through the
// message pipeline under a concurrency semaphore.
type Worker struct {
	cfg      Config
	cp       *client.ControlPlane
	leases   proto.LeaseServiceClient
	conn     *grpc.ClientConn
	pipeline *Pipeline
	logger   *zerolog.Logger

	sem    *semaphore.Weighted
	active atomic.Int64
	missed int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a worker; Start registers it and begins pulling.
func NewWorker(cfg Config, pipeline *Pipeline) (*Worker, error) {
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("node id is required")
	}
	if cfg.Slots <= 0 {
		return nil, fmt.Errorf("slots must be positive")
	}
	if cfg.MaxConcurrentLeases <= 0 {
		cfg.MaxConcurrentLeases = DefaultMaxConcurrentLeases
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Worker{
		cfg:      cfg,
		cp:       client.NewControlPlane(cfg.ControlPlaneURL),
		pipeline: pipeline,
		logger:   log.WithNodeID(cfg.NodeID),
		sem:      semaphore.NewWeighted(cfg.MaxConcurrentLeases),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start registers the node and starts the heartbeat and pull loops.
// Registration failure is fatal to the caller: a worker the control plane
// does not know about will never be offered a lease.
func (w *Worker) Start(ctx context.Context) error {
	regCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := w.cp.RegisterNode(regCtx, &types.Node{
		ID:       w.cfg.NodeID,
		Metadata: w.cfg.Metadata,
		Capacity: &types.NodeCapacity{Slots: w.cfg.Slots},
	})
	if err != nil {
		return fmt.Errorf("register node: %w", err)
	}

	leases, conn, err := client.DialLeases(w.cfg.LeaseAddr)
	if err != nil {
		return fmt.Errorf("dial lease service: %w", err)
	}
	w.leases = leases
	w.conn = conn

	w.logger.Info().
		Int("slots", w.cfg.Slots).
		Int64("maxConcurrentLeases", w.cfg.MaxConcurrentLeases).
		Msg("worker registered")

	go w.heartbeatLoop()
	go w.pullLoop()
	return nil
}

// Stop drains in-flight runs, sends a final draining heartbeat and closes
// the lease connection. Runs still going after the drain timeout are left
// to the lease reaper.
func (w *Worker) Stop() {
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(w.cfg.DrainTimeout):
		w.logger.Warn().
			Int64("activeRuns", w.active.Load()).
			Msg("drain timeout reached, abandoning in-flight runs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.cp.Heartbeat(ctx, w.cfg.NodeID, types.NodeStatus{
		State:          types.NodeDraining,
		ActiveRuns:     int(w.active.Load()),
		AvailableSlots: 0,
	}); err != nil {
		w.logger.Warn().Err(err).Msg("draining heartbeat failed")
	}

	if w.conn != nil {
		w.conn.Close()
	}
	w.logger.Info().Msg("worker stopped")
}

func (w *Worker) heartbeatLoop() {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.sendHeartbeat(); err != nil {
				w.missed++
				evt := w.logger.Debug()
				if w.missed >= missedHeartbeatWarn {
					evt = w.logger.Warn()
				}
				evt.Err(err).Int("consecutiveMisses", w.missed).Msg("heartbeat failed")
			} else {
				w.missed = 0
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sendHeartbeat() error {
	active := int(w.active.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.cp.Heartbeat(ctx, w.cfg.NodeID, types.NodeStatus{
		State:          types.NodeActive,
		ActiveRuns:     active,
		AvailableSlots: w.cfg.Slots - active,
	})
}
