package reconciler

import (
	"context"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/events"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/corral-dev/corral/pkg/types"
)

// DefaultInterval is the reconciliation cadence.
const DefaultInterval = 10 * time.Second

// deploymentGracePeriod is how long a deployment may sit with no matching
// live node before it is marked failed.
const deploymentGracePeriod = 5 * time.Minute

// Reconciler drives the cluster back to a consistent state: nodes whose
// heartbeats lapsed are marked unreachable and their runs requeued, runs
// whose leases expired are returned to the pending queue, and deployments
// are walked through their lifecycle as capacity comes and goes.
type Reconciler struct {
	mgr      *manager.Manager
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReconciler creates a reconciler on the given manager.
func NewReconciler(mgr *manager.Manager) *Reconciler {
	return &Reconciler{
		mgr:      mgr,
		interval: DefaultInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop halts the loop and waits for the current pass to finish.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Reconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Reconcile(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one pass. Errors are logged, not returned: a failed
// pass is retried on the next tick.
func (r *Reconciler) Reconcile(ctx context.Context) {
	r.reapDeadNodes(ctx)
	r.reclaimExpiredLeases(ctx)
	r.reconcileDeployments()
}

// reapDeadNodes marks nodes with lapsed heartbeats unreachable and requeues
// everything they were working on.
func (r *Reconciler) reapDeadNodes(ctx context.Context) {
	logger := log.WithComponent("reconciler")

	nodes, err := r.mgr.ListNodes()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list nodes")
		return
	}

	now := time.Now()
	for _, node := range nodes {
		if node.Status.State == types.NodeUnreachable {
			continue
		}
		if now.Sub(node.LastHeartbeat) <= types.HeartbeatMaxAge {
			continue
		}

		logger.Warn().Str("node_id", node.ID).
			Time("last_heartbeat", node.LastHeartbeat).
			Msg("node heartbeat lapsed, marking unreachable")

		if err := r.mgr.MarkNodeUnreachable(node.ID); err != nil {
			logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to mark node unreachable")
			continue
		}
		r.requeueNodeRuns(ctx, node.ID)
	}
}

func (r *Reconciler) requeueNodeRuns(ctx context.Context, nodeID string) {
	logger := log.WithComponent("reconciler")

	runs, err := r.mgr.Store().ListRunsByNode(nodeID)
	if err != nil {
		logger.Error().Err(err).Str("node_id", nodeID).Msg("failed to list node runs")
		return
	}
	for _, run := range runs {
		if run.Status != types.RunAssigned && run.Status != types.RunRunning {
			continue
		}
		if err := r.mgr.RequeueRun(ctx, run.ID, "node unreachable"); err != nil && !errdefs.IsConflict(err) {
			logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to requeue run")
			continue
		}
		metrics.RunsRetried.Inc()
	}
}

// reconcileDeployments walks each deployment through pending, deploying and
// active based on how many live nodes match its placement. A deployment
// with no matching node for longer than the grace period is marked failed.
func (r *Reconciler) reconcileDeployments() {
	logger := log.WithComponent("reconciler")

	deployments, err := r.mgr.ListDeployments()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list deployments")
		return
	}
	if len(deployments) == 0 {
		return
	}
	nodes, err := r.mgr.ListNodes()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list nodes")
		return
	}

	now := time.Now()
	for _, dep := range deployments {
		state := dep.Status.State
		if state == types.DeploymentFailed {
			continue
		}

		replicas := 1
		var placement map[string]any
		if dep.Target != nil {
			if dep.Target.Replicas > 0 {
				replicas = dep.Target.Replicas
			}
			placement = dep.Target.Placement
		}

		ready := 0
		for _, node := range nodes {
			if nodeServes(node, placement, now) {
				ready++
			}
		}
		if ready > replicas {
			ready = replicas
		}

		var next types.DeploymentState
		switch {
		case state == types.DeploymentPending:
			next = types.DeploymentDeploying
		case ready >= replicas:
			next = types.DeploymentActive
		case ready == 0 && now.Sub(dep.Status.LastUpdated) > deploymentGracePeriod:
			next = types.DeploymentFailed
		default:
			next = types.DeploymentDeploying
		}

		if next != state {
			logger.Info().Str("deployment_id", dep.ID).
				Str("state", string(next)).
				Int("ready_replicas", ready).
				Msg("deployment state transition")
		}
		if err := r.mgr.SetDeploymentStatus(dep.ID, next, ready); err != nil {
			logger.Error().Err(err).Str("deployment_id", dep.ID).Msg("failed to update deployment status")
		}
	}
}

// nodeServes reports whether a live node satisfies the placement labels.
func nodeServes(node *types.Node, placement map[string]any, now time.Time) bool {
	if node.Status.State != types.NodeActive {
		return false
	}
	if now.Sub(node.LastHeartbeat) > types.HeartbeatMaxAge {
		return false
	}
	for key, want := range placement {
		got, ok := node.Metadata[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case string:
			if got != w {
				return false
			}
		case []string:
			if !containsString(w, got) {
				return false
			}
		case []any:
			found := false
			for _, item := range w {
				if s, ok := item.(string); ok && s == got {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// reclaimExpiredLeases requeues assigned/running runs whose lease is gone.
// The lease store is authoritative: a missing lease means the worker either
// died or lost its ownership window.
func (r *Reconciler) reclaimExpiredLeases(ctx context.Context) {
	logger := log.WithComponent("reconciler")

	for _, status := range []types.RunStatus{types.RunAssigned, types.RunRunning} {
		runs, err := r.mgr.ListRunsByStatus(status)
		if err != nil {
			logger.Error().Err(err).Msg("failed to list runs")
			return
		}
		for _, run := range runs {
			l, err := r.mgr.Leases().GetLease(ctx, run.ID)
			if err != nil {
				logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to check lease")
				continue
			}
			if l != nil {
				continue
			}

			logger.Warn().Str("run_id", run.ID).Str("node_id", run.NodeID).
				Msg("lease expired, requeueing run")
			r.mgr.PublishEvent(events.NewEvent(events.EventLeaseExpired, "run", run.ID, run.NodeID))

			if err := r.mgr.RequeueRun(ctx, run.ID, "lease expired"); err != nil && !errdefs.IsConflict(err) {
				logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to requeue run")
				continue
			}
			metrics.LeasesExpired.Inc()
		}
	}
}
