package worker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/corral-dev/corral/pkg/api"
	"github.com/corral-dev/corral/pkg/connector"
	"github.com/corral-dev/corral/pkg/executor"
	"github.com/corral-dev/corral/pkg/lease"
	"github.com/corral-dev/corral/pkg/leasesvc"
	"github.com/corral-dev/corral/pkg/manager"
	"github.com/corral-dev/corral/pkg/scheduler"
	"github.com/corral-dev/corral/pkg/storage"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full loop: register over REST, pull a lease over gRPC, process a queued
// message and complete the run.
func TestWorkerEndToEnd(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mgr := manager.NewManager(store, lease.NewRedisManager(rdb))
	t.Cleanup(mgr.Stop)
	sched := scheduler.NewScheduler(store)

	svc := leasesvc.NewService(mgr, sched)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go svc.Serve(lis)
	t.Cleanup(svc.Stop)

	rest := httptest.NewServer(api.NewServer(mgr, sched).Router())
	t.Cleanup(rest.Close)

	sinkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(sinkSrv.Close)

	agent := &types.Agent{
		Name:         "invoice-triage",
		Instructions: "Classify the invoice.",
		ModelProfile: map[string]any{"model": "gpt-4o"},
		Input: &types.ConnectorConfig{
			Type:     types.ConnectorServiceBus,
			Settings: map[string]string{"stream": "invoices"},
		},
		Output: &types.ConnectorConfig{
			Type:     types.ConnectorHTTP,
			Settings: map[string]string{"url": sinkSrv.URL},
		},
	}
	require.NoError(t, mgr.CreateAgent(agent))
	_, err = mgr.PublishVersion(agent.ID, "1.0.0")
	require.NoError(t, err)

	feed, err := connector.NewStreamConnector(context.Background(), rdb, connector.StreamConfig{
		Stream: "invoices", Consumer: "seed",
	})
	require.NoError(t, err)
	_, err = feed.Publish(context.Background(), []byte(`{"input":"invoice #42"}`))
	require.NoError(t, err)

	runner := &stubRunner{resp: &executor.Response{
		Success: true, Output: `{"class":"invoice"}`, TokensIn: 10, TokensOut: 5,
	}}
	w, err := NewWorker(Config{
		NodeID:          "worker-1",
		ControlPlaneURL: rest.URL,
		LeaseAddr:       lis.Addr().String(),
		Slots:           4,
	}, NewPipeline(rdb, runner, PipelineConfig{}))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	run, err := mgr.CreateRun(agent.ID, "1.0.0")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetRun(run.ID)
		return err == nil && got.Status == types.RunCompleted
	}, 10*time.Second, 50*time.Millisecond)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", got.NodeID)
	require.NotNil(t, got.Costs)
	assert.Equal(t, int64(10), got.Costs.TokensIn)
}

func TestNewWorkerValidation(t *testing.T) {
	_, err := NewWorker(Config{Slots: 1}, nil)
	assert.Error(t, err)

	_, err = NewWorker(Config{NodeID: "w"}, nil)
	assert.Error(t, err)
}

func TestWorkerStartFailsWithoutControlPlane(t *testing.T) {
	w, err := NewWorker(Config{
		NodeID:          "worker-1",
		ControlPlaneURL: "http://127.0.0.1:1",
		LeaseAddr:       "127.0.0.1:1",
		Slots:           1,
	}, NewPipeline(nil, &stubRunner{}, PipelineConfig{}))
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}
