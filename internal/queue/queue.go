package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"lapse/internal/render"
)

// ErrClosed is returned by Enqueue and Get once the queue is closed.
var ErrClosed = errors.New("queue closed")

// Entry is a pending job and when it was submitted.
type Entry struct {
	Descriptor *render.Descriptor
	EnqueuedAt time.Time
}

// Queue is a concurrency-safe FIFO of render descriptors.
type Queue struct {
	mu         sync.Mutex
	items      []Entry
	unfinished int
	closed     bool
	wake       chan struct{}
	idle       chan struct{}
	now        func() time.Time
}

// New returns an empty queue.
func New() *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		wake: make(chan struct{}),
		idle: idle,
		now:  time.Now,
	}
}

// Enqueue appends desc and wakes any waiting consumer.
func (q *Queue) Enqueue(desc *render.Descriptor) error {
	if desc == nil {
		return errors.New("queue: nil descriptor")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, Entry{Descriptor: desc, EnqueuedAt: q.now()})
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	close(q.wake)
	q.wake = make(chan struct{})
	return nil
}

// Get removes and returns the oldest descriptor, waiting up to timeout for
// one to arrive. A nil descriptor with a nil error means the wait timed out.
// A non-positive timeout waits until ctx ends.
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (*render.Descriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			entry := q.items[0]
			q.items[0] = Entry{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return entry.Descriptor, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
			return nil, nil
		case <-wake:
		}
	}
}

// Len reports how many jobs are waiting, excluding any being processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Unfinished reports jobs enqueued but not yet marked done.
func (q *Queue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

// TaskDone marks one previously fetched job as finished. Calls beyond the
// number of enqueued jobs are ignored.
func (q *Queue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished == 0 {
		return
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Join blocks until every enqueued job has been marked done or ctx ends.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns a snapshot of the waiting entries in dequeue order.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.items))
	copy(out, q.items)
	return out
}

// Close rejects further submissions and releases waiting consumers once the
// remaining entries are drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.wake)
	q.wake = make(chan struct{})
}
