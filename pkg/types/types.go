package types

import (
	"time"
)

// Agent is a named definition of an LLM-driven business-process task.
type Agent struct {
	ID           string
	Name         string
	Description  string
	Instructions string // Used verbatim as the system prompt
	ModelProfile map[string]any
	Budget       *Budget
	Tools        []string
	Input        *ConnectorConfig
	Output       *ConnectorConfig
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Budget bounds a single run of an agent.
type Budget struct {
	MaxTokens          int
	MaxDurationSeconds int
	MaxUSD             float64
}

// ConnectorType identifies a connector implementation.
type ConnectorType string

const (
	ConnectorServiceBus ConnectorType = "service-bus"
	ConnectorHTTP       ConnectorType = "http"
	ConnectorKafka      ConnectorType = "kafka"
	ConnectorStorage    ConnectorType = "storage"
	ConnectorSQL        ConnectorType = "sql"
)

// ValidConnectorType reports whether t is a recognized connector type.
func ValidConnectorType(t ConnectorType) bool {
	switch t {
	case ConnectorServiceBus, ConnectorHTTP, ConnectorKafka, ConnectorStorage, ConnectorSQL:
		return true
	}
	return false
}

// ConnectorConfig describes one side (input or output) of an agent's wiring.
type ConnectorConfig struct {
	Type     ConnectorType
	Settings map[string]string
}

// AgentVersion is an immutable snapshot of an agent tagged with a semantic
// version. Spec may be nil, denoting "no spec change" relative to the live
// agent definition.
type AgentVersion struct {
	AgentID   string
	Version   string
	Spec      *Agent
	CreatedAt time.Time
}

// Deployment is an intention to run a specific agent version in an environment.
type Deployment struct {
	ID          string
	AgentID     string
	Version     string
	Environment string
	Target      *DeploymentTarget
	Status      DeploymentStatus
	CreatedAt   time.Time
}

// DeploymentTarget describes where and how widely a deployment should run.
type DeploymentTarget struct {
	Replicas  int
	Placement map[string]any // constraint key -> string or []string
}

// DeploymentState represents the lifecycle state of a deployment.
type DeploymentState string

const (
	DeploymentPending   DeploymentState = "pending"
	DeploymentDeploying DeploymentState = "deploying"
	DeploymentActive    DeploymentState = "active"
	DeploymentFailed    DeploymentState = "failed"
)

// DeploymentStatus is the observed state of a deployment.
type DeploymentStatus struct {
	State         DeploymentState
	ReadyReplicas int
	LastUpdated   time.Time
}

// Node is a worker process instance registered with the control plane.
// The ID is a stable string chosen by the worker.
type Node struct {
	ID            string
	Metadata      map[string]string // recognized keys: region, environment
	Capacity      *NodeCapacity
	Status        NodeStatus
	LastHeartbeat time.Time
	CreatedAt     time.Time
}

// NodeCapacity tracks a node's execution capacity. Slots is the number of
// concurrent runs the node accepts; CPU and Memory are scheduling hints.
type NodeCapacity struct {
	Slots  int
	CPU    float64
	Memory int64
}

// NodeState represents the liveness state of a node.
type NodeState string

const (
	NodeActive      NodeState = "active"
	NodeDraining    NodeState = "draining"
	NodeUnreachable NodeState = "unreachable"
)

// NodeStatus is the observed state of a node as reported by heartbeats.
type NodeStatus struct {
	State          NodeState
	ActiveRuns     int
	AvailableSlots int
}

// HeartbeatMaxAge is the heartbeat age beyond which a node is no longer
// considered live by the scheduler and is marked unreachable by the reaper.
const HeartbeatMaxAge = 60 * time.Second

// Run is a single execution of an agent version, driven by one external input.
type Run struct {
	ID         string
	AgentID    string
	Version    string
	NodeID     string // set exactly while status is assigned or running
	Status     RunStatus
	Timings    map[string]int64
	Costs      *RunCosts
	Error      *RunError
	RetryCount int
	CreatedAt  time.Time
	TerminalAt time.Time
}

// RunStatus represents the state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunAssigned  RunStatus = "assigned"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether s is a terminal run status. Terminal states are
// final; no subsequent write may change them.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// RunCosts accumulates the resource cost of a run.
type RunCosts struct {
	TokensIn  int64   `json:"tokens_in"`
	TokensOut int64   `json:"tokens_out"`
	USD       float64 `json:"usd"`
}

// RunError carries the terminal error information of a failed run.
type RunError struct {
	Message string `json:"errorMessage"`
	Details string `json:"errorDetails"`
	Reason  string `json:"reason"`
}

// Lease is a transient exclusive assignment of a run to a node. At most one
// un-expired lease exists per run at any moment.
type Lease struct {
	RunID     string
	NodeID    string
	ExpiresAt time.Time
}

// Expired reports whether the lease has passed its expiry at time now.
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
