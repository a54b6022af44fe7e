package connector

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T, consumer string) (*StreamConnector, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sc, err := NewStreamConnector(context.Background(), client, StreamConfig{
		Stream:       "agent-input",
		Consumer:     consumer,
		BlockTimeout: 50 * time.Millisecond,
		ClaimMinIdle: 10 * time.Second,
	})
	require.NoError(t, err)
	return sc, mr, client
}

func TestPublishReceiveAck(t *testing.T) {
	sc, _, client := newTestStream(t, "worker-1")
	ctx := context.Background()

	_, err := sc.Publish(ctx, []byte(`{"invoice":"inv-1"}`))
	require.NoError(t, err)

	msgs, err := sc.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte(`{"invoice":"inv-1"}`), msgs[0].Body)
	assert.Equal(t, 1, msgs[0].DeliveryCount)

	require.NoError(t, sc.Ack(ctx, msgs[0]))

	// Nothing pending and nothing left on the stream.
	pending, err := client.XPending(ctx, "agent-input", "corral").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	msgs, err = sc.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAbandonedMessageRedelivered(t *testing.T) {
	sc1, mr, client := newTestStream(t, "worker-1")
	ctx := context.Background()

	// Pin the server clock; pending idle time is measured against it.
	base := time.Now()
	mr.SetTime(base)

	_, err := sc1.Publish(ctx, []byte(`{"invoice":"inv-1"}`))
	require.NoError(t, err)

	msgs, err := sc1.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NoError(t, sc1.Abandon(ctx, msgs[0]))

	// A second consumer reclaims the message after the idle window.
	sc2, err := NewStreamConnector(ctx, client, StreamConfig{
		Stream:       "agent-input",
		Consumer:     "worker-2",
		BlockTimeout: 50 * time.Millisecond,
		ClaimMinIdle: 10 * time.Second,
	})
	require.NoError(t, err)

	// Too soon: still inside the idle window.
	redelivered, err := sc2.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, redelivered)

	mr.SetTime(base.Add(11 * time.Second))

	redelivered, err = sc2.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, redelivered, 1)
	assert.Equal(t, msgs[0].ID, redelivered[0].ID)
	assert.GreaterOrEqual(t, redelivered[0].DeliveryCount, 2)
}

func TestReceiveHonorsPrefetchCap(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sc, err := NewStreamConnector(context.Background(), client, StreamConfig{
		Stream:       "agent-input",
		Consumer:     "worker-1",
		BlockTimeout: 50 * time.Millisecond,
		Prefetch:     2,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := sc.Publish(ctx, []byte(`{"input":"doc"}`))
		require.NoError(t, err)
	}

	msgs, err := sc.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestDeadLetter(t *testing.T) {
	sc, _, client := newTestStream(t, "worker-1")
	ctx := context.Background()

	_, err := sc.Publish(ctx, []byte(`not json at all`))
	require.NoError(t, err)

	msgs, err := sc.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, sc.DeadLetter(ctx, msgs[0], ReasonPoisonMessage, "malformed payload"))

	dead, err := client.XRange(ctx, sc.DeadLetterStream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, string(ReasonPoisonMessage), dead[0].Values["reason"])
	assert.Equal(t, "not json at all", dead[0].Values["body"])

	// Original message is gone.
	msgs, err = sc.Receive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStreamConfigValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	_, err := NewStreamConnector(context.Background(), client, StreamConfig{Consumer: "c"})
	assert.Error(t, err)
	_, err = NewStreamConnector(context.Background(), client, StreamConfig{Stream: "s"})
	assert.Error(t, err)
}
