package storage

import (
	"github.com/corral-dev/corral/pkg/types"
)

// Store defines the interface for control-plane state storage.
// Implemented by the BoltDB-backed store.
type Store interface {
	// Agents
	CreateAgent(agent *types.Agent) error
	GetAgent(id string) (*types.Agent, error)
	ListAgents() ([]*types.Agent, error)
	UpdateAgent(agent *types.Agent) error
	// DeleteAgent cascades: versions and deployments of the agent are
	// removed in the same transaction.
	DeleteAgent(id string) error

	// Agent versions
	CreateVersion(version *types.AgentVersion) error
	GetVersion(agentID, version string) (*types.AgentVersion, error)
	// ListVersionsByAgent returns versions ordered by created-at descending.
	ListVersionsByAgent(agentID string) ([]*types.AgentVersion, error)

	// Deployments
	CreateDeployment(deployment *types.Deployment) error
	GetDeployment(id string) (*types.Deployment, error)
	ListDeployments() ([]*types.Deployment, error)
	ListDeploymentsByAgent(agentID string) ([]*types.Deployment, error)
	UpdateDeployment(deployment *types.Deployment) error
	DeleteDeployment(id string) error

	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id string) error

	// Runs
	CreateRun(run *types.Run) error
	GetRun(id string) (*types.Run, error)
	ListRuns() ([]*types.Run, error)
	ListRunsByStatus(status types.RunStatus) ([]*types.Run, error)
	ListRunsByNode(nodeID string) ([]*types.Run, error)
	UpdateRun(run *types.Run) error
	DeleteRun(id string) error

	// Run terminal transitions. Each is a no-op returning not-found if the
	// run does not exist; otherwise it sets status, stamps terminal-at and
	// persists the error/timing/cost fields.
	CompleteRun(runID string, timings map[string]int64, costs *types.RunCosts) error
	FailRun(runID, errorMessage, errorDetails string, timings map[string]int64) error
	CancelRun(runID, reason string) error

	// Utility
	Close() error
}
