package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/redis/go-redis/v9"
)

// StreamConfig configures a Redis Streams input connector.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string

	// BlockTimeout bounds how long Receive waits for new messages.
	BlockTimeout time.Duration

	// ClaimMinIdle is how long a pending message must sit idle before
	// another consumer may claim it. This is the redelivery delay for
	// abandoned or orphaned messages.
	ClaimMinIdle time.Duration

	// Prefetch caps how many messages a single Receive may take off the
	// stream regardless of the caller's max. Zero means no cap.
	Prefetch int
}

func (c *StreamConfig) withDefaults() StreamConfig {
	out := *c
	if out.Group == "" {
		out.Group = "corral"
	}
	if out.BlockTimeout <= 0 {
		out.BlockTimeout = 5 * time.Second
	}
	if out.ClaimMinIdle <= 0 {
		out.ClaimMinIdle = 30 * time.Second
	}
	return out
}

// StreamConnector reads work from a Redis stream through a consumer group,
// giving at-least-once delivery with per-message delivery counts. The
// dead-letter stream is "<stream>:dead".
type StreamConnector struct {
	client redis.UniversalClient
	cfg    StreamConfig
}

// NewStreamConnector creates the connector and its consumer group. Creating
// an existing group is not an error.
func NewStreamConnector(ctx context.Context, client redis.UniversalClient, cfg StreamConfig) (*StreamConnector, error) {
	if cfg.Stream == "" {
		return nil, errdefs.Validationf("stream name must not be empty")
	}
	if cfg.Consumer == "" {
		return nil, errdefs.Validationf("consumer name must not be empty")
	}
	cfg = cfg.withDefaults()

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &StreamConnector{client: client, cfg: cfg}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && (errors.Is(err, redis.Nil) || containsBusyGroup(err.Error()))
}

func containsBusyGroup(s string) bool {
	return len(s) >= 9 && s[:9] == "BUSYGROUP"
}

// Publish appends a message to the stream. Used by producers and tests.
func (s *StreamConnector) Publish(ctx context.Context, body []byte) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Stream,
		Values: map[string]any{
			"body":       string(body),
			"enqueuedAt": time.Now().UnixMilli(),
		},
	}).Result()
	if err != nil {
		return "", errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to publish: %w", err))
	}
	return id, nil
}

// Receive first reclaims messages other consumers left pending too long,
// then reads new messages. Reclaimed messages carry their true delivery
// count so poison detection survives consumer crashes.
func (s *StreamConnector) Receive(ctx context.Context, max int) ([]*Message, error) {
	if max <= 0 {
		max = 1
	}
	if s.cfg.Prefetch > 0 && max > s.cfg.Prefetch {
		max = s.cfg.Prefetch
	}

	msgs, err := s.claimStale(ctx, max)
	if err != nil {
		return nil, err
	}
	if len(msgs) >= max {
		return msgs, nil
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    int64(max - len(msgs)),
		Block:    s.cfg.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return msgs, nil
	}
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to read stream: %w", err))
	}

	for _, stream := range streams {
		for _, xmsg := range stream.Messages {
			msgs = append(msgs, decodeMessage(xmsg, 1))
		}
	}
	return msgs, nil
}

func (s *StreamConnector) claimStale(ctx context.Context, max int) ([]*Message, error) {
	claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.ClaimMinIdle,
		Start:    "0",
		Count:    int64(max),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to claim pending: %w", err))
	}

	var msgs []*Message
	for _, xmsg := range claimed {
		count := s.deliveryCount(ctx, xmsg.ID)
		msgs = append(msgs, decodeMessage(xmsg, count))
	}
	return msgs, nil
}

func (s *StreamConnector) deliveryCount(ctx context.Context, id string) int {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.cfg.Stream,
		Group:  s.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 1
	}
	return int(pending[0].RetryCount)
}

// Ack acknowledges and deletes a processed message.
func (s *StreamConnector) Ack(ctx context.Context, msg *Message) error {
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, msg.ID).Err(); err != nil {
		return errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to ack %s: %w", msg.ID, err))
	}
	return s.client.XDel(ctx, s.cfg.Stream, msg.ID).Err()
}

// Abandon leaves the message pending so it is reclaimed after ClaimMinIdle.
func (s *StreamConnector) Abandon(ctx context.Context, msg *Message) error {
	// No-op on the wire: an unacked pending entry is redelivered by the
	// next consumer's claim pass.
	return nil
}

// DeadLetter copies the message to the dead-letter stream and acks it.
func (s *StreamConnector) DeadLetter(ctx context.Context, msg *Message, reason DeadLetterReason, detail string) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.DeadLetterStream(),
		Values: map[string]any{
			"body":          string(msg.Body),
			"originalId":    msg.ID,
			"reason":        string(reason),
			"detail":        detail,
			"deliveryCount": msg.DeliveryCount,
		},
	}).Err()
	if err != nil {
		return errdefs.Wrap(errdefs.KindTransient, fmt.Errorf("failed to dead-letter %s: %w", msg.ID, err))
	}
	return s.Ack(ctx, msg)
}

// DeadLetterStream returns the name of the dead-letter stream.
func (s *StreamConnector) DeadLetterStream() string {
	return s.cfg.Stream + ":dead"
}

func (s *StreamConnector) Close() error {
	return nil
}

func decodeMessage(xmsg redis.XMessage, deliveryCount int) *Message {
	msg := &Message{
		ID:            xmsg.ID,
		DeliveryCount: deliveryCount,
	}
	if body, ok := xmsg.Values["body"].(string); ok {
		msg.Body = []byte(body)
	}
	if ts, ok := xmsg.Values["enqueuedAt"].(string); ok {
		if ms, err := parseInt64(ts); err == nil {
			msg.EnqueuedAt = time.UnixMilli(ms)
		}
	}
	return msg
}

func parseInt64(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}
