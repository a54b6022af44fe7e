/*
Package types defines the core data structures used throughout Corral.

This package contains all fundamental types that represent Corral's domain
model: agents, agent versions, deployments, worker nodes, runs and leases.
These types are used by all other packages for state management, API
communication and scheduling logic.

# Core Types

Agent definitions:
  - Agent: LLM-driven task definition (instructions, model profile, budget,
    tools, input/output connector configuration)
  - AgentVersion: immutable SemVer-tagged snapshot of an agent
  - Deployment: intention to run an agent version in an environment, with a
    replica target and placement constraints

Fleet and execution:
  - Node: a worker process registered with the control plane, with metadata,
    slot capacity and heartbeat-driven status
  - Run: one execution of one agent version against one external input
  - Lease: short, owner-stamped right to execute a run on a specific node

# State Machine

Runs follow a state machine driven by the control-plane lease service:

	pending → assigned → running → completed
	   ▲         │          │
	   │         │          └── failed (non-retryable, or retries exhausted)
	   └─────────┴── lease expiry / retryable failure

Terminal states (completed, failed, cancelled) are final. NodeID is set
exactly while a run is assigned or running.

# Design Patterns

All enums use typed string constants. Optional configuration uses pointers
(nil Budget means unbounded except for runtime defaults). All types are
JSON-serializable; the storage layer persists them as JSON.
*/
package types
