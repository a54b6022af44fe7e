package manager

import (
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/events"
	"github.com/corral-dev/corral/pkg/lease"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/google/uuid"
)

// DefaultMaxRetries bounds how often a failed run is requeued before it is
// marked terminally failed.
const DefaultMaxRetries = 3

// Manager coordinates control-plane state: agent definitions, versions,
// deployments, nodes and runs. All writes flow through it so validation and
// event publication happen in one place.
type Manager struct {
	store       storage.Store
	leases      lease.Manager
	eventBroker *events.Broker
	maxRetries  int
}

// NewManager creates a Manager on the given store and lease manager.
func NewManager(store storage.Store, leases lease.Manager) *Manager {
	eventBroker := events.NewBroker()
	eventBroker.Start()

	return &Manager{
		store:       store,
		leases:      leases,
		eventBroker: eventBroker,
		maxRetries:  DefaultMaxRetries,
	}
}

// Stop shuts down the event broker.
func (m *Manager) Stop() {
	m.eventBroker.Stop()
}

// Store exposes the underlying store for read-only consumers.
func (m *Manager) Store() storage.Store {
	return m.store
}

// Leases exposes the lease manager.
func (m *Manager) Leases() lease.Manager {
	return m.leases
}

// GetEventBroker returns the event broker for subscriptions
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// PublishEvent publishes an event to the broker
func (m *Manager) PublishEvent(event *events.Event) {
	m.eventBroker.Publish(event)
}

// Agent operations

// CreateAgent validates and persists a new agent definition.
func (m *Manager) CreateAgent(agent *types.Agent) error {
	if err := validateAgent(agent); err != nil {
		return err
	}
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	agent.CreatedAt = time.Now()

	if err := m.store.CreateAgent(agent); err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventAgentCreated, "agent", agent.ID, ""))
	return nil
}

// UpdateAgent validates and persists changes to the mutable agent record.
// Published versions are immutable snapshots and are not affected.
func (m *Manager) UpdateAgent(agent *types.Agent) error {
	if err := validateAgent(agent); err != nil {
		return err
	}
	if _, err := m.store.GetAgent(agent.ID); err != nil {
		return err
	}
	if err := m.store.UpdateAgent(agent); err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventAgentUpdated, "agent", agent.ID, ""))
	return nil
}

// DeleteAgent removes an agent along with its versions and deployments.
func (m *Manager) DeleteAgent(id string) error {
	if _, err := m.store.GetAgent(id); err != nil {
		return err
	}
	if err := m.store.DeleteAgent(id); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventAgentDeleted, "agent", id, ""))
	return nil
}

func (m *Manager) GetAgent(id string) (*types.Agent, error) {
	return m.store.GetAgent(id)
}

func (m *Manager) ListAgents() ([]*types.Agent, error) {
	return m.store.ListAgents()
}

// Version operations

// PublishVersion snapshots the agent's current spec under an immutable
// semantic version. Republishing an existing version is a conflict.
func (m *Manager) PublishVersion(agentID, version string) (*types.AgentVersion, error) {
	agent, err := m.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateVersion(version); err != nil {
		return nil, err
	}
	if _, err := m.store.GetVersion(agentID, version); err == nil {
		return nil, errdefs.Conflictf("version %s of agent %s already exists", version, agentID)
	} else if !errdefs.IsNotFound(err) {
		return nil, err
	}

	snapshot := *agent
	v := &types.AgentVersion{
		AgentID:   agentID,
		Version:   version,
		Spec:      &snapshot,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateVersion(v); err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventVersionCreated, "version", agentID+"@"+version, ""))
	return v, nil
}

func (m *Manager) GetVersion(agentID, version string) (*types.AgentVersion, error) {
	return m.store.GetVersion(agentID, version)
}

func (m *Manager) ListVersionsByAgent(agentID string) ([]*types.AgentVersion, error) {
	if _, err := m.store.GetAgent(agentID); err != nil {
		return nil, err
	}
	return m.store.ListVersionsByAgent(agentID)
}

// Deployment operations

// CreateDeployment binds a published agent version to a placement target.
// New deployments start pending; the reconciler walks them through
// deploying to active once enough matching nodes are live.
func (m *Manager) CreateDeployment(deployment *types.Deployment) error {
	if err := validateDeployment(deployment); err != nil {
		return err
	}
	if _, err := m.store.GetVersion(deployment.AgentID, deployment.Version); err != nil {
		return err
	}
	if deployment.ID == "" {
		deployment.ID = uuid.New().String()
	}
	deployment.Status.State = types.DeploymentPending
	deployment.Status.LastUpdated = time.Now()
	deployment.CreatedAt = time.Now()

	if err := m.store.CreateDeployment(deployment); err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventDeploymentCreated, "deployment", deployment.ID, ""))
	return nil
}

// UpdateDeployment replaces the deployment's target and status.
func (m *Manager) UpdateDeployment(deployment *types.Deployment) error {
	if err := validateDeployment(deployment); err != nil {
		return err
	}
	if _, err := m.store.GetDeployment(deployment.ID); err != nil {
		return err
	}
	if _, err := m.store.GetVersion(deployment.AgentID, deployment.Version); err != nil {
		return err
	}
	if err := m.store.UpdateDeployment(deployment); err != nil {
		return fmt.Errorf("failed to update deployment: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventDeploymentUpdated, "deployment", deployment.ID, ""))
	return nil
}

// SetDeploymentStatus records an observed lifecycle transition. Writes are
// skipped when nothing changed so the reconciler can call this every tick.
func (m *Manager) SetDeploymentStatus(id string, state types.DeploymentState, readyReplicas int) error {
	deployment, err := m.store.GetDeployment(id)
	if err != nil {
		return err
	}
	if deployment.Status.State == state && deployment.Status.ReadyReplicas == readyReplicas {
		return nil
	}

	deployment.Status.State = state
	deployment.Status.ReadyReplicas = readyReplicas
	deployment.Status.LastUpdated = time.Now()
	if err := m.store.UpdateDeployment(deployment); err != nil {
		return fmt.Errorf("failed to update deployment status: %w", err)
	}

	m.PublishEvent(events.NewEvent(events.EventDeploymentUpdated, "deployment", id, string(state)))
	return nil
}

func (m *Manager) DeleteDeployment(id string) error {
	if _, err := m.store.GetDeployment(id); err != nil {
		return err
	}
	return m.store.DeleteDeployment(id)
}

func (m *Manager) GetDeployment(id string) (*types.Deployment, error) {
	return m.store.GetDeployment(id)
}

func (m *Manager) ListDeployments() ([]*types.Deployment, error) {
	return m.store.ListDeployments()
}

func (m *Manager) ListDeploymentsByAgent(agentID string) ([]*types.Deployment, error) {
	return m.store.ListDeploymentsByAgent(agentID)
}
