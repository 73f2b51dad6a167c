package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Batch is the payload flowing through the queue.
type Batch = model.ImportBatch

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a batch. Returns ErrFull or ErrClosed when it cannot.
	Enqueue(ctx context.Context, b Batch) error
	// Dequeue returns a channel that yields batches until the queue is
	// closed and drained, or ctx ends.
	Dequeue(ctx context.Context) <-chan Batch
	// Len returns the current number of queued batches.
	Len(ctx context.Context) int
	// Cap returns the queue capacity.
	Cap() int
	// Close stops accepting batches. Already queued batches stay readable.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches  chan Batch
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a batch to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.batches <- b:
		metrics.RecordQueueEnqueue()
		q.publish()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive batches as they become available.
// A batch already taken off the queue when ctx ends is dropped; consumers that
// must drain close the queue rather than cancel ctx.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-q.batches:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				if !b.SubmittedAt.IsZero() {
					metrics.RecordQueueProcessingLatency(float64(time.Since(b.SubmittedAt).Milliseconds()))
				}
				q.publish()
				select {
				case out <- b:
				case <-ctx.Done():
					metrics.RecordErrorByComponent("queue", "dropped_on_cancel")
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued batches.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.batches)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

func (q *InMemoryQueue) publish() {
	size := len(q.batches)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting batches and lets consumers drain what remains.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
