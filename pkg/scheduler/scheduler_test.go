package scheduler

import (
	"testing"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewScheduler(store), store
}

func addNode(t *testing.T, store storage.Store, id string, slots, activeRuns int, metadata map[string]string) {
	t.Helper()
	require.NoError(t, store.CreateNode(&types.Node{
		ID:       id,
		Metadata: metadata,
		Capacity: &types.NodeCapacity{Slots: slots},
		Status: types.NodeStatus{
			State:          types.NodeActive,
			ActiveRuns:     activeRuns,
			AvailableSlots: slots - activeRuns,
		},
		LastHeartbeat: time.Now(),
	}))
}

func TestSelectNodeLeastLoaded(t *testing.T) {
	sched, store := newTestScheduler(t)
	now := time.Now()

	addNode(t, store, "node-a", 10, 5, nil) // 50%
	addNode(t, store, "node-b", 10, 1, nil) // 10%
	addNode(t, store, "node-c", 10, 3, nil) // 30%

	node, err := sched.SelectNode(nil, now)
	require.NoError(t, err)
	assert.Equal(t, "node-b", node.ID)
}

func TestSelectNodeConstraints(t *testing.T) {
	sched, store := newTestScheduler(t)
	now := time.Now()

	addNode(t, store, "node-a", 10, 0, map[string]string{"region": "us-west"})
	addNode(t, store, "node-b", 10, 4, map[string]string{"region": "us-east"})
	addNode(t, store, "node-c", 10, 2, map[string]string{"region": "us-east"})

	// Least-loaded overall is node-a, but the constraint excludes it.
	node, err := sched.SelectNode(map[string]any{"region": "us-east"}, now)
	require.NoError(t, err)
	assert.Equal(t, "node-c", node.ID)

	// Constraint matching is case-sensitive.
	_, err = sched.SelectNode(map[string]any{"region": "US-East"}, now)
	assert.True(t, errdefs.IsTransient(err))

	// List constraint matches membership.
	node, err = sched.SelectNode(map[string]any{"region": []any{"us-west", "eu-west"}}, now)
	require.NoError(t, err)
	assert.Equal(t, "node-a", node.ID)

	// Missing metadata key never matches.
	_, err = sched.SelectNode(map[string]any{"gpu": "a100"}, now)
	assert.True(t, errdefs.IsTransient(err))
}

func TestSelectNodeTieBreaking(t *testing.T) {
	sched, store := newTestScheduler(t)
	now := time.Now()

	// Equal load percent, node-b has more free slots.
	addNode(t, store, "node-a", 4, 2, nil)  // 50%, 2 free
	addNode(t, store, "node-b", 10, 5, nil) // 50%, 5 free

	node, err := sched.SelectNode(nil, now)
	require.NoError(t, err)
	assert.Equal(t, "node-b", node.ID)
}

func TestSelectNodeTieBreaksOnID(t *testing.T) {
	sched, store := newTestScheduler(t)
	now := time.Now()

	addNode(t, store, "node-b", 4, 2, nil)
	addNode(t, store, "node-a", 4, 2, nil)

	node, err := sched.SelectNode(nil, now)
	require.NoError(t, err)
	assert.Equal(t, "node-a", node.ID)
}

func TestSelectNodeSkipsIneligible(t *testing.T) {
	sched, store := newTestScheduler(t)
	now := time.Now()

	// Stale heartbeat.
	require.NoError(t, store.CreateNode(&types.Node{
		ID:            "node-stale",
		Capacity:      &types.NodeCapacity{Slots: 10},
		Status:        types.NodeStatus{State: types.NodeActive},
		LastHeartbeat: now.Add(-2 * time.Minute),
	}))
	// Draining.
	require.NoError(t, store.CreateNode(&types.Node{
		ID:            "node-draining",
		Capacity:      &types.NodeCapacity{Slots: 10},
		Status:        types.NodeStatus{State: types.NodeDraining},
		LastHeartbeat: now,
	}))
	// Full.
	addNode(t, store, "node-full", 2, 2, nil)
	// Zero slots counts as fully loaded.
	addNode(t, store, "node-zero", 0, 0, nil)

	_, err := sched.SelectNode(nil, now)
	assert.True(t, errdefs.IsTransient(err))

	addNode(t, store, "node-ok", 2, 1, nil)
	node, err := sched.SelectNode(nil, now)
	require.NoError(t, err)
	assert.Equal(t, "node-ok", node.ID)
}

func TestComputeLoadTrustsStoreOverHeartbeat(t *testing.T) {
	sched, store := newTestScheduler(t)

	// Node reports 1 active run, but the store knows of 3.
	addNode(t, store, "node-a", 4, 1, nil)
	for _, r := range []*types.Run{
		{ID: "r1", NodeID: "node-a", Status: types.RunRunning},
		{ID: "r2", NodeID: "node-a", Status: types.RunAssigned},
		{ID: "r3", NodeID: "node-a", Status: types.RunRunning},
		{ID: "r4", NodeID: "node-a", Status: types.RunCompleted},
	} {
		require.NoError(t, store.CreateRun(r))
	}

	load, err := sched.GetNodeLoad("node-a")
	require.NoError(t, err)
	assert.Equal(t, 3, load.ActiveRuns)
	assert.Equal(t, 1, load.AvailableSlots)
	assert.InDelta(t, 75.0, load.LoadPercent, 0.01)
	assert.True(t, load.HasCapacity)
}

func TestNodeLoadHasCapacity(t *testing.T) {
	sched, store := newTestScheduler(t)

	addNode(t, store, "node-full", 2, 2, nil)
	addNode(t, store, "node-zero", 0, 0, nil)
	addNode(t, store, "node-free", 2, 1, nil)

	loads, err := sched.GetClusterLoad()
	require.NoError(t, err)
	byID := map[string]NodeLoad{}
	for _, l := range loads {
		byID[l.NodeID] = l
	}
	assert.False(t, byID["node-full"].HasCapacity)
	assert.False(t, byID["node-zero"].HasCapacity)
	assert.True(t, byID["node-free"].HasCapacity)
}

func TestGetNodeLoadNotFound(t *testing.T) {
	sched, _ := newTestScheduler(t)
	_, err := sched.GetNodeLoad("missing")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestGetClusterLoad(t *testing.T) {
	sched, store := newTestScheduler(t)

	addNode(t, store, "node-b", 4, 1, nil)
	addNode(t, store, "node-a", 4, 0, nil)

	loads, err := sched.GetClusterLoad()
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "node-a", loads[0].NodeID)
	assert.Equal(t, "node-b", loads[1].NodeID)
	assert.Equal(t, 3, loads[1].AvailableSlots)
}
