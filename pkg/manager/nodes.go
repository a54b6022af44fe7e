package manager

import (
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/events"
	"github.com/corral-dev/corral/pkg/types"
)

// RegisterNode records a worker joining the cluster. Re-registration of a
// known node refreshes its capacity and metadata, which is how a restarted
// worker rejoins without a new identity.
func (m *Manager) RegisterNode(node *types.Node) error {
	if node.ID == "" {
		return errdefs.Validationf("node id must not be empty")
	}
	if node.Capacity == nil || node.Capacity.Slots <= 0 {
		return errdefs.Validationf("node %s must advertise a positive slot capacity", node.ID)
	}

	node.Status.State = types.NodeActive
	node.Status.AvailableSlots = node.Capacity.Slots - node.Status.ActiveRuns
	node.LastHeartbeat = time.Now()

	existing, err := m.store.GetNode(node.ID)
	switch {
	case err == nil:
		node.CreatedAt = existing.CreatedAt
		if err := m.store.UpdateNode(node); err != nil {
			return fmt.Errorf("failed to re-register node: %w", err)
		}
	case errdefs.IsNotFound(err):
		node.CreatedAt = time.Now()
		if err := m.store.CreateNode(node); err != nil {
			return fmt.Errorf("failed to register node: %w", err)
		}
	default:
		return err
	}

	m.PublishEvent(events.NewEvent(events.EventNodeJoined, "node", node.ID, ""))
	return nil
}

// Heartbeat refreshes node liveness and load. The heartbeat timestamp is
// always server time so a worker with a skewed clock cannot look live or
// dead by accident.
func (m *Manager) Heartbeat(nodeID string, status types.NodeStatus) error {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		return err
	}

	wasUnreachable := node.Status.State == types.NodeUnreachable

	if status.State == "" {
		status.State = types.NodeActive
	}
	node.Status = status
	node.LastHeartbeat = time.Now()

	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	if wasUnreachable && status.State == types.NodeActive {
		m.PublishEvent(events.NewEvent(events.EventNodeJoined, "node", nodeID, "node recovered"))
	}
	return nil
}

// MarkNodeUnreachable flags a node whose heartbeats have lapsed.
func (m *Manager) MarkNodeUnreachable(nodeID string) error {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		return err
	}
	if node.Status.State == types.NodeUnreachable {
		return nil
	}

	node.Status.State = types.NodeUnreachable
	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("failed to mark node unreachable: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventNodeUnreachable, "node", nodeID, ""))
	return nil
}

// RemoveNode deletes a node record, typically after a drain completes.
func (m *Manager) RemoveNode(nodeID string) error {
	if _, err := m.store.GetNode(nodeID); err != nil {
		return err
	}
	if err := m.store.DeleteNode(nodeID); err != nil {
		return fmt.Errorf("failed to remove node: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventNodeLeft, "node", nodeID, ""))
	return nil
}

func (m *Manager) GetNode(id string) (*types.Node, error) {
	return m.store.GetNode(id)
}

func (m *Manager) ListNodes() ([]*types.Node, error) {
	return m.store.ListNodes()
}

// ListLiveNodes returns nodes whose heartbeat is within the liveness window.
func (m *Manager) ListLiveNodes() ([]*types.Node, error) {
	nodes, err := m.store.ListNodes()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	live := make([]*types.Node, 0, len(nodes))
	for _, node := range nodes {
		if now.Sub(node.LastHeartbeat) <= types.HeartbeatMaxAge {
			live = append(live, node)
		}
	}
	return live, nil
}
