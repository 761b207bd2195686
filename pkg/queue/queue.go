// Package queue provides the message queue abstraction coordinating indexer
// lifecycle events. Creating an indexer publishes its id to the start queue;
// an indexer process dying unexpectedly publishes its id to the failed queue.
package queue

import "context"

// Publisher publishes indexer ids to a named queue
type Publisher interface {
	// Publish sends body to the queue
	Publish(ctx context.Context, body string) error

	// Purge drops all pending messages. Intended for tests.
	Purge(ctx context.Context) error

	// Health verifies the queue is reachable
	Health(ctx context.Context) error
}

// Handler processes one received message body. Returning an error leaves the
// message on the queue for redelivery.
type Handler func(ctx context.Context, body string) error

// Consumer long-polls a queue and dispatches messages to a Handler
type Consumer interface {
	// Consume blocks until ctx is cancelled, invoking handler per message
	Consume(ctx context.Context, handler Handler) error
}
