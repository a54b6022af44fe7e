package leasesvc

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/corral-dev/corral/api/proto"
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/log"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/google/uuid"
)

// dispatchLoop runs the placement tick until Stop.
func (s *Service) dispatchLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.dispatchOnce(context.Background()); err != nil {
				log.WithComponent("leasesvc").Error().Err(err).Msg("dispatch tick failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// dispatchOnce places pending runs oldest-first. The tick is serialized
// across control-plane replicas with an advisory lock; losing the lock race
// just means another replica is dispatching.
func (s *Service) dispatchOnce(ctx context.Context) error {
	leases := s.mgr.Leases()
	got, err := leases.AcquireLock(ctx, dispatchLockKey, s.instanceID, 2*s.dispatchInterval)
	if err != nil {
		return err
	}
	if !got {
		return nil
	}
	defer func() {
		if _, err := leases.ReleaseLock(ctx, dispatchLockKey, s.instanceID); err != nil {
			log.WithComponent("leasesvc").Warn().Err(err).Msg("failed to release dispatch lock")
		}
	}()

	pending, err := s.mgr.ListRunsByStatus(types.RunPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	// Oldest runs first.
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	for _, run := range pending {
		if err := s.dispatchRun(ctx, run); err != nil {
			log.WithRunID(run.ID).Debug().Err(err).Msg("run not dispatched this tick")
		}
	}
	return nil
}

// dispatchRun places one pending run: pick a node, take the lease, mark the
// run assigned and push the lease down the node's stream.
func (s *Service) dispatchRun(ctx context.Context, run *types.Run) error {
	constraints, err := s.placementConstraints(run)
	if err != nil {
		return err
	}

	node, err := s.sched.SelectNode(constraints, time.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	p, ok := s.pullers[node.ID]
	if !ok || p.credits == 0 {
		s.mu.Unlock()
		return errdefs.Transientf("node %s has no stream capacity", node.ID)
	}
	p.credits--
	s.mu.Unlock()

	undoCredit := func() { s.returnCredit(node.ID) }

	acquired, err := s.mgr.Leases().AcquireLease(ctx, run.ID, node.ID, s.leaseTTL)
	if err != nil {
		undoCredit()
		return err
	}
	if !acquired {
		// Someone else holds it; the reconciler will sort it out.
		undoCredit()
		return nil
	}

	lease, err := s.buildLease(run, node.ID)
	if err != nil {
		s.rollback(ctx, run.ID, node.ID, undoCredit)
		return err
	}

	if err := s.mgr.MarkAssigned(run.ID, node.ID); err != nil {
		s.rollback(ctx, run.ID, node.ID, undoCredit)
		return err
	}

	select {
	case p.leaseCh <- lease:
	default:
		// Stream buffer full despite credit accounting; undo the assignment.
		if reqErr := s.mgr.RequeueRun(ctx, run.ID, "stream backlogged"); reqErr != nil {
			log.WithRunID(run.ID).Warn().Err(reqErr).Msg("failed to requeue after full stream")
		}
		s.rollback(ctx, run.ID, node.ID, undoCredit)
		return nil
	}

	metrics.RunsDispatched.Inc()
	metrics.DispatchLatency.Observe(time.Since(run.CreatedAt).Seconds())
	log.WithRunID(run.ID).Info().Str("node_id", node.ID).Msg("run dispatched")
	return nil
}

func (s *Service) rollback(ctx context.Context, runID, nodeID string, undoCredit func()) {
	undoCredit()
	if _, err := s.mgr.Leases().AdminReleaseLease(ctx, runID); err != nil {
		log.WithRunID(runID).Warn().Err(err).Msg("failed to release lease during rollback")
	}
}

// placementConstraints resolves the run's constraints from the deployment
// binding its agent version, if any.
func (s *Service) placementConstraints(run *types.Run) (map[string]any, error) {
	deployments, err := s.mgr.ListDeploymentsByAgent(run.AgentID)
	if err != nil {
		return nil, err
	}
	for _, dep := range deployments {
		if dep.Version == run.Version && dep.Target != nil {
			return dep.Target.Placement, nil
		}
	}
	return nil, nil
}

func (s *Service) buildLease(run *types.Run, nodeID string) (*proto.Lease, error) {
	version, err := s.mgr.GetVersion(run.AgentID, run.Version)
	if err != nil {
		return nil, err
	}
	spec, err := json.Marshal(version.Spec)
	if err != nil {
		return nil, err
	}
	return &proto.Lease{
		LeaseId:   uuid.New().String(),
		RunId:     run.ID,
		AgentId:   run.AgentID,
		Version:   run.Version,
		AgentSpec: spec,
		ExpiresAt: time.Now().Add(s.leaseTTL).UnixMilli(),
	}, nil
}

func costsFromProto(c *proto.Costs) *types.RunCosts {
	if c == nil {
		return nil
	}
	return &types.RunCosts{
		TokensIn:  c.GetTokensIn(),
		TokensOut: c.GetTokensOut(),
		USD:       c.GetUsd(),
	}
}
