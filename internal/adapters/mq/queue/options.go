// Package queue defines the contract for enqueuing and consuming import batches.
// The in-memory implementation is a bounded channel; a full queue rejects
// instead of blocking so the HTTP layer can answer with backpressure.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of batches waiting in the queue.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
