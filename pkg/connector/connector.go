package connector

import (
	"context"
	"time"
)

// Message is one unit of work pulled from an input connector.
type Message struct {
	ID            string
	Body          []byte
	DeliveryCount int
	EnqueuedAt    time.Time
}

// DeadLetterReason classifies why a message was removed from circulation.
type DeadLetterReason string

const (
	ReasonPoisonMessage            DeadLetterReason = "PoisonMessage"
	ReasonNonRetryableError        DeadLetterReason = "NonRetryableError"
	ReasonMaxDeliveryCountExceeded DeadLetterReason = "MaxDeliveryCountExceeded"
	ReasonDeserializationError     DeadLetterReason = "DeserializationError"
	ReasonAgentConfigurationError  DeadLetterReason = "AgentConfigurationError"
)

// InputConnector is an at-least-once message source. Messages must be
// acked, abandoned (redelivered later) or dead-lettered; an unacked message
// eventually comes back with a higher delivery count.
type InputConnector interface {
	// Receive returns up to max messages, blocking briefly if none are
	// immediately available.
	Receive(ctx context.Context, max int) ([]*Message, error)

	// Ack removes a processed message permanently.
	Ack(ctx context.Context, msg *Message) error

	// Abandon returns the message for redelivery to a later consumer.
	Abandon(ctx context.Context, msg *Message) error

	// DeadLetter moves the message to the dead-letter stream with a reason.
	DeadLetter(ctx context.Context, msg *Message, reason DeadLetterReason, detail string) error

	Close() error
}

// OutputConnector delivers agent results downstream.
type OutputConnector interface {
	// Deliver sends one result. runID and messageID form the idempotency
	// key so redeliveries are deduplicated by the receiver.
	Deliver(ctx context.Context, runID, messageID string, payload []byte) error

	Close() error
}
