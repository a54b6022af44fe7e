package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/corral-dev/corral/pkg/lease"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (*Reconciler, *manager.Manager, *miniredis.Miniredis) {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mgr := manager.NewManager(store, lease.NewRedisManager(client))
	t.Cleanup(mgr.Stop)

	return NewReconciler(mgr), mgr, mr
}

func setupAssignedRun(t *testing.T, mgr *manager.Manager, nodeID string) *types.Run {
	t.Helper()
	agent := &types.Agent{Name: "a", Instructions: "x", ModelProfile: map[string]any{"model": "gpt-4o"}}
	require.NoError(t, mgr.CreateAgent(agent))
	_, err := mgr.PublishVersion(agent.ID, "1.0.0")
	require.NoError(t, err)

	run, err := mgr.CreateRun(agent.ID, "1.0.0")
	require.NoError(t, err)
	require.NoError(t, mgr.MarkAssigned(run.ID, nodeID))
	return run
}

func TestReapDeadNodes(t *testing.T) {
	r, mgr, _ := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, mgr.RegisterNode(&types.Node{ID: "node-1", Capacity: &types.NodeCapacity{Slots: 4}}))
	run := setupAssignedRun(t, mgr, "node-1")

	// Backdate the heartbeat past the liveness window.
	node, err := mgr.GetNode("node-1")
	require.NoError(t, err)
	node.LastHeartbeat = time.Now().Add(-2 * types.HeartbeatMaxAge)
	require.NoError(t, mgr.Store().UpdateNode(node))

	r.Reconcile(ctx)

	node, err = mgr.GetNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeUnreachable, node.Status.State)

	got, err := mgr.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.NodeID)
}

func TestLiveNodeUntouched(t *testing.T) {
	r, mgr, _ := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, mgr.RegisterNode(&types.Node{ID: "node-1", Capacity: &types.NodeCapacity{Slots: 4}}))
	run := setupAssignedRun(t, mgr, "node-1")

	ok, err := mgr.Leases().AcquireLease(ctx, run.ID, "node-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	r.Reconcile(ctx)

	node, err := mgr.GetNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeActive, node.Status.State)

	got, err := mgr.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunAssigned, got.Status)
	assert.Zero(t, got.RetryCount)
}

func TestReclaimExpiredLease(t *testing.T) {
	r, mgr, mr := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, mgr.RegisterNode(&types.Node{ID: "node-1", Capacity: &types.NodeCapacity{Slots: 4}}))
	run := setupAssignedRun(t, mgr, "node-1")

	ok, err := mgr.Leases().AcquireLease(ctx, run.ID, "node-1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	r.Reconcile(ctx)

	got, err := mgr.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}

func TestDeploymentLifecycle(t *testing.T) {
	r, mgr, _ := newTestReconciler(t)
	ctx := context.Background()

	agent := &types.Agent{Name: "a", Instructions: "x", ModelProfile: map[string]any{"model": "gpt-4o"}}
	require.NoError(t, mgr.CreateAgent(agent))
	_, err := mgr.PublishVersion(agent.ID, "1.0.0")
	require.NoError(t, err)

	dep := &types.Deployment{
		AgentID: agent.ID,
		Version: "1.0.0",
		Target: &types.DeploymentTarget{
			Replicas:  1,
			Placement: map[string]any{"region": "us-east"},
		},
	}
	require.NoError(t, mgr.CreateDeployment(dep))
	require.Equal(t, types.DeploymentPending, dep.Status.State)

	// No matching node yet: pending moves to deploying and waits.
	r.Reconcile(ctx)
	got, err := mgr.GetDeployment(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DeploymentDeploying, got.Status.State)

	// A node in the wrong region does not count.
	require.NoError(t, mgr.RegisterNode(&types.Node{
		ID:       "node-west",
		Metadata: map[string]string{"region": "us-west"},
		Capacity: &types.NodeCapacity{Slots: 4},
	}))
	r.Reconcile(ctx)
	got, err = mgr.GetDeployment(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DeploymentDeploying, got.Status.State)
	assert.Zero(t, got.Status.ReadyReplicas)

	// A matching live node promotes the deployment to active.
	require.NoError(t, mgr.RegisterNode(&types.Node{
		ID:       "node-east",
		Metadata: map[string]string{"region": "us-east"},
		Capacity: &types.NodeCapacity{Slots: 4},
	}))
	r.Reconcile(ctx)
	got, err = mgr.GetDeployment(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DeploymentActive, got.Status.State)
	assert.Equal(t, 1, got.Status.ReadyReplicas)
}

func TestDeploymentDemotedWhenNodeGoesDark(t *testing.T) {
	r, mgr, _ := newTestReconciler(t)
	ctx := context.Background()

	agent := &types.Agent{Name: "a", Instructions: "x", ModelProfile: map[string]any{"model": "gpt-4o"}}
	require.NoError(t, mgr.CreateAgent(agent))
	_, err := mgr.PublishVersion(agent.ID, "1.0.0")
	require.NoError(t, err)

	require.NoError(t, mgr.RegisterNode(&types.Node{ID: "node-1", Capacity: &types.NodeCapacity{Slots: 4}}))
	dep := &types.Deployment{
		AgentID: agent.ID,
		Version: "1.0.0",
		Target:  &types.DeploymentTarget{Replicas: 1},
	}
	require.NoError(t, mgr.CreateDeployment(dep))

	r.Reconcile(ctx)
	r.Reconcile(ctx)
	got, err := mgr.GetDeployment(dep.ID)
	require.NoError(t, err)
	require.Equal(t, types.DeploymentActive, got.Status.State)

	// Backdate the heartbeat; the deployment falls back to deploying.
	node, err := mgr.GetNode("node-1")
	require.NoError(t, err)
	node.LastHeartbeat = time.Now().Add(-2 * types.HeartbeatMaxAge)
	require.NoError(t, mgr.Store().UpdateNode(node))

	r.Reconcile(ctx)
	got, err = mgr.GetDeployment(dep.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DeploymentDeploying, got.Status.State)
	assert.Zero(t, got.Status.ReadyReplicas)
}

func TestRequeueBudgetExhaustedFailsRun(t *testing.T) {
	r, mgr, _ := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, mgr.RegisterNode(&types.Node{ID: "node-1", Capacity: &types.NodeCapacity{Slots: 4}}))
	run := setupAssignedRun(t, mgr, "node-1")

	// Repeatedly lose the lease until the budget runs out.
	for i := 0; i < manager.DefaultMaxRetries; i++ {
		r.Reconcile(ctx)

		got, err := mgr.GetRun(run.ID)
		require.NoError(t, err)
		require.Equal(t, types.RunPending, got.Status)
		require.NoError(t, mgr.MarkAssigned(run.ID, "node-1"))
	}

	r.Reconcile(ctx)

	got, err := mgr.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, got.Status)
	assert.Equal(t, "retry budget exhausted", got.Error.Message)
}
