package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/corral-dev/corral/pkg/types"
)

// NodeLoad is the computed load picture for one node at selection time.
type NodeLoad struct {
	NodeID         string  `json:"nodeId"`
	TotalSlots     int     `json:"totalSlots"`
	ActiveRuns     int     `json:"activeRuns"`
	AvailableSlots int     `json:"availableSlots"`
	LoadPercent    float64 `json:"loadPercent"`
	HasCapacity    bool    `json:"hasCapacity"`
}

// Scheduler picks the least-loaded eligible node for a run.
type Scheduler struct {
	store storage.Store
}

// NewScheduler creates a scheduler backed by the given store.
func NewScheduler(store storage.Store) *Scheduler {
	return &Scheduler{store: store}
}

// SelectNode returns the node that should execute a run, applying placement
// constraints and least-loaded ordering. Constraint values are matched
// case-sensitively against node metadata; a list value matches when the node
// metadata equals any element.
//
// Eligible nodes are active, heartbeated within the liveness window and have
// at least one free slot. Ties break toward more free slots, then
// lexicographically smaller node ID so placement is deterministic.
func (s *Scheduler) SelectNode(constraints map[string]any, now time.Time) (*types.Node, error) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	type candidate struct {
		node *types.Node
		load NodeLoad
	}
	var candidates []candidate

	for _, node := range nodes {
		if !eligible(node, now) {
			continue
		}
		if !matchesConstraints(node, constraints) {
			continue
		}
		load, err := s.computeLoad(node)
		if err != nil {
			return nil, err
		}
		if !load.HasCapacity {
			continue
		}
		candidates = append(candidates, candidate{node: node, load: load})
	}

	if len(candidates) == 0 {
		return nil, errdefs.Transientf("no eligible node for constraints %v", constraints)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].load, candidates[j].load
		if a.LoadPercent != b.LoadPercent {
			return a.LoadPercent < b.LoadPercent
		}
		if a.AvailableSlots != b.AvailableSlots {
			return a.AvailableSlots > b.AvailableSlots
		}
		return a.NodeID < b.NodeID
	})

	return candidates[0].node, nil
}

// GetNodeLoad computes the current load picture for a single node.
func (s *Scheduler) GetNodeLoad(nodeID string) (*NodeLoad, error) {
	node, err := s.store.GetNode(nodeID)
	if err != nil {
		return nil, err
	}
	load, err := s.computeLoad(node)
	if err != nil {
		return nil, err
	}
	return &load, nil
}

// GetClusterLoad computes the load picture for every known node.
func (s *Scheduler) GetClusterLoad() ([]NodeLoad, error) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	loads := make([]NodeLoad, 0, len(nodes))
	for _, node := range nodes {
		load, err := s.computeLoad(node)
		if err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].NodeID < loads[j].NodeID })
	return loads, nil
}

// computeLoad reconciles the node's self-reported active-run count with the
// store's view, trusting whichever is higher so a stale heartbeat cannot
// understate load.
func (s *Scheduler) computeLoad(node *types.Node) (NodeLoad, error) {
	runs, err := s.store.ListRunsByNode(node.ID)
	if err != nil {
		return NodeLoad{}, fmt.Errorf("failed to list runs for node %s: %w", node.ID, err)
	}
	counted := 0
	for _, run := range runs {
		if run.Status == types.RunAssigned || run.Status == types.RunRunning {
			counted++
		}
	}

	active := node.Status.ActiveRuns
	if counted > active {
		active = counted
	}

	totalSlots := 0
	if node.Capacity != nil {
		totalSlots = node.Capacity.Slots
	}

	available := totalSlots - active
	if available < 0 {
		available = 0
	}

	loadPct := 100.0
	if totalSlots > 0 {
		loadPct = float64(active) / float64(totalSlots) * 100.0
	}

	return NodeLoad{
		NodeID:         node.ID,
		TotalSlots:     totalSlots,
		ActiveRuns:     active,
		AvailableSlots: available,
		LoadPercent:    loadPct,
		HasCapacity:    available > 0,
	}, nil
}

func eligible(node *types.Node, now time.Time) bool {
	if node.Status.State != types.NodeActive {
		return false
	}
	return now.Sub(node.LastHeartbeat) <= types.HeartbeatMaxAge
}

// matchesConstraints checks placement constraints against node metadata.
// A string value requires exact equality; a list requires membership.
func matchesConstraints(node *types.Node, constraints map[string]any) bool {
	for key, want := range constraints {
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
