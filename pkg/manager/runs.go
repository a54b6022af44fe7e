package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/events"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/google/uuid"
)

// CreateRun enqueues a new pending run of a published agent version.
func (m *Manager) CreateRun(agentID, version string) (*types.Run, error) {
	if _, err := m.store.GetVersion(agentID, version); err != nil {
		return nil, err
	}

	run := &types.Run{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Version:   version,
		Status:    types.RunPending,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventRunCreated, "run", run.ID, ""))
	return run, nil
}

func (m *Manager) GetRun(id string) (*types.Run, error) {
	return m.store.GetRun(id)
}

func (m *Manager) ListRuns() ([]*types.Run, error) {
	return m.store.ListRuns()
}

func (m *Manager) ListRunsByStatus(status types.RunStatus) ([]*types.Run, error) {
	return m.store.ListRunsByStatus(status)
}

// MarkAssigned transitions a pending run to assigned on the given node.
func (m *Manager) MarkAssigned(runID, nodeID string) error {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Status != types.RunPending {
		return errdefs.Conflictf("run %s is %s, cannot assign", runID, run.Status)
	}

	run.Status = types.RunAssigned
	run.NodeID = nodeID
	if err := m.store.UpdateRun(run); err != nil {
		return fmt.Errorf("failed to assign run: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventRunAssigned, "run", runID, nodeID))
	return nil
}

// MarkRunning transitions an assigned run to running. Only the node that
// holds the assignment may start the run.
func (m *Manager) MarkRunning(runID, nodeID string) error {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run.NodeID != nodeID {
		return errdefs.NotOwnerf("run %s is assigned to %s, not %s", runID, run.NodeID, nodeID)
	}
	if run.Status != types.RunAssigned {
		return errdefs.Conflictf("run %s is %s, cannot start", runID, run.Status)
	}

	run.Status = types.RunRunning
	if err := m.store.UpdateRun(run); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventRunStarted, "run", runID, nodeID))
	return nil
}

// CompleteRun records a successful run from its owning node and releases
// the lease.
func (m *Manager) CompleteRun(ctx context.Context, runID, nodeID string, timings map[string]int64, costs *types.RunCosts) error {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run.NodeID != nodeID {
		return errdefs.NotOwnerf("run %s is owned by %s, not %s", runID, run.NodeID, nodeID)
	}

	if err := m.store.CompleteRun(runID, timings, costs); err != nil {
		return err
	}
	m.releaseLease(ctx, runID, nodeID)

	m.PublishEvent(events.NewEvent(events.EventRunCompleted, "run", runID, nodeID))
	return nil
}

// FailRun records a failure from the owning node. Retryable failures are
// requeued until the retry budget is spent; the return value tells the
// caller whether the run will be retried. Timings observed before the
// failure are persisted with the run even when the outcome is terminal.
func (m *Manager) FailRun(ctx context.Context, runID, nodeID, errorMessage, errorDetails string, retryable bool, timings map[string]int64) (bool, error) {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return false, err
	}
	if run.NodeID != nodeID {
		return false, errdefs.NotOwnerf("run %s is owned by %s, not %s", runID, run.NodeID, nodeID)
	}
	if run.Status.Terminal() {
		return false, errdefs.Conflictf("run %s already %s", runID, run.Status)
	}

	if retryable && run.RetryCount < m.maxRetries {
		if err := m.requeue(run, errorMessage); err != nil {
			return false, err
		}
		m.releaseLease(ctx, runID, nodeID)
		return true, nil
	}

	if err := m.store.FailRun(runID, errorMessage, errorDetails, timings); err != nil {
		return false, err
	}
	m.releaseLease(ctx, runID, nodeID)

	m.PublishEvent(events.NewEvent(events.EventRunFailed, "run", runID, errorMessage))
	return false, nil
}

// RenewLease tops the lease on an in-flight run back up to a full ttl for
// its owning node and returns the new expiry. Workers whose runs outlive one
// lease TTL call this from a keepalive so the reconciler does not reclaim
// the run mid-execution.
func (m *Manager) RenewLease(ctx context.Context, runID, nodeID string, ttl time.Duration) (time.Time, error) {
	if m.leases == nil {
		return time.Time{}, errdefs.Transientf("lease store is not configured")
	}
	lease, err := m.leases.GetLease(ctx, runID)
	if err != nil {
		return time.Time{}, err
	}
	if lease == nil {
		return time.Time{}, errdefs.NotFoundf("no lease held for run %s", runID)
	}
	if lease.NodeID != nodeID {
		return time.Time{}, errdefs.NotOwnerf("lease for run %s is held by %s, not %s", runID, lease.NodeID, nodeID)
	}

	// The extend script adds to the remaining TTL, so top up by the
	// difference rather than the full ttl to keep the expiry at now+ttl.
	additional := ttl - time.Until(lease.ExpiresAt)
	if additional <= 0 {
		return lease.ExpiresAt, nil
	}
	ok, err := m.leases.ExtendLease(ctx, runID, nodeID, additional)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, errdefs.NotOwnerf("lease for run %s expired during renewal", runID)
	}
	return time.Now().Add(ttl), nil
}

// CancelRun terminates a run administratively and reclaims its lease.
func (m *Manager) CancelRun(ctx context.Context, runID, reason string) error {
	if err := m.store.CancelRun(runID, reason); err != nil {
		return err
	}
	if m.leases != nil {
		if _, err := m.leases.AdminReleaseLease(ctx, runID); err != nil {
			log.WithRunID(runID).Warn().Err(err).Msg("failed to release lease on cancel")
		}
	}

	m.PublishEvent(events.NewEvent(events.EventRunCancelled, "run", runID, reason))
	return nil
}

// RequeueRun puts a non-terminal run back in the pending queue, e.g. after
// its node went unreachable or its lease expired. Each requeue consumes
// retry budget so a crash-looping run still terminates.
func (m *Manager) RequeueRun(ctx context.Context, runID, reason string) error {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return errdefs.Conflictf("run %s already %s", runID, run.Status)
	}
	if run.Status == types.RunPending {
		return nil
	}

	if run.RetryCount >= m.maxRetries {
		if err := m.store.FailRun(runID, "retry budget exhausted", reason, nil); err != nil {
			return err
		}
		m.PublishEvent(events.NewEvent(events.EventRunFailed, "run", runID, "retry budget exhausted"))
		return nil
	}

	if err := m.requeue(run, reason); err != nil {
		return err
	}
	if m.leases != nil {
		if _, err := m.leases.AdminReleaseLease(ctx, runID); err != nil {
			log.WithRunID(runID).Warn().Err(err).Msg("failed to release lease on requeue")
		}
	}
	return nil
}

func (m *Manager) requeue(run *types.Run, reason string) error {
	run.Status = types.RunPending
	run.NodeID = ""
	run.RetryCount++
	if err := m.store.UpdateRun(run); err != nil {
		return fmt.Errorf("failed to requeue run: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventRunRequeued, "run", run.ID, reason))
	return nil
}

func (m *Manager) releaseLease(ctx context.Context, runID, nodeID string) {
	if m.leases == nil {
		return
	}
	if _, err := m.leases.ReleaseLease(ctx, runID, nodeID); err != nil {
		log.WithRunID(runID).Warn().Err(err).Msg("failed to release lease")
	}
}
