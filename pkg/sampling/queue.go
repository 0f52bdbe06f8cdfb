package sampling

import (
	"context"
	"sync"
)

// OutputQueue is a bounded FIFO of process samples between the sampling
// task and its consumers. A full queue blocks the producer: samples are
// never dropped.
type OutputQueue struct {
	ch   chan ProcessSample
	done chan struct{}
	once sync.Once
}

// NewOutputQueue returns a queue holding up to capacity samples. Capacities
// below one are raised to one.
func NewOutputQueue(capacity int) *OutputQueue {
	if capacity < 1 {
		capacity = 1
	}

	return &OutputQueue{
		ch:   make(chan ProcessSample, capacity),
		done: make(chan struct{}),
	}
}

// Push enqueues s, blocking while the queue is full. It fails with
// ErrQueueClosed once the queue is closed, or with the context error.
func (q *OutputQueue) Push(ctx context.Context, s ProcessSample) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- s:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest sample, blocking while the queue is empty.
// Samples pushed before Close are still returned; after that Pop fails
// with ErrQueueClosed.
func (q *OutputQueue) Pop(ctx context.Context) (ProcessSample, error) {
	select {
	case s := <-q.ch:
		return s, nil
	default:
	}

	select {
	case s := <-q.ch:
		return s, nil
	case <-q.done:
		return q.popClosed()
	case <-ctx.Done():
		return ProcessSample{}, ctx.Err()
	}
}

func (q *OutputQueue) popClosed() (ProcessSample, error) {
	select {
	case s := <-q.ch:
		return s, nil
	default:
		return ProcessSample{}, ErrQueueClosed
	}
}

// TryPop dequeues the oldest sample without blocking.
func (q *OutputQueue) TryPop() (ProcessSample, bool) {
	select {
	case s := <-q.ch:
		return s, true
	default:
		return ProcessSample{}, false
	}
}

// Drain dequeues every sample currently queued, oldest first.
func (q *OutputQueue) Drain() []ProcessSample {
	var out []ProcessSample
	for {
		s, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

func (q *OutputQueue) Len() int {
	return len(q.ch)
}

func (q *OutputQueue) Cap() int {
	return cap(q.ch)
}

// Close stops accepting samples and wakes blocked producers and consumers.
// It is safe to call more than once.
func (q *OutputQueue) Close() {
	q.once.Do(func() {
		close(q.done)
	})
}
