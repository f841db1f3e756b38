package messaging

import (
	"context"
)

// Vendor names a queue implementation
type Vendor string

// VendorMemory is the in-process queue vendor
const VendorMemory Vendor = "memory"

// Queue is a message queue for payloads of type T
type Queue[T any] interface {
	// Publish enqueues t
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a consumed queue entry
type Message[T any] interface {
	// T returns the payload
	T() *T

	// Ack marks the message processed
	Ack() error

	// Nack marks the message failed, the queue may redeliver it
	Nack(err error) error
}
