// Package fulfillment decouples the client-facing validation path from the
// printer call and claim persistence. Producers enqueue without blocking; a
// single worker drains tasks in FIFO order.
package fulfillment

import (
	"context"
	"sync"

	"cafeteria/internal/claims/models"
)

// Queue is an unbounded multi-producer/single-consumer FIFO of fulfillment
// tasks. Enqueue never blocks, which keeps the request path's latency bounded
// by validation cost alone. Tasks still queued when the process exits are
// lost; that is an accepted limitation of this design.
type Queue struct {
	mu     sync.Mutex
	tasks  []models.FulfillmentTask
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Enqueue appends a task. Never blocks.
func (q *Queue) Enqueue(task models.FulfillmentTask) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest task, blocking until one is
// available or ctx is cancelled. Single consumer only.
func (q *Queue) Dequeue(ctx context.Context) (models.FulfillmentTask, error) {
	for {
		q.mu.Lock()
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.FulfillmentTask{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// Depth returns the number of waiting tasks.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
