package events

import (
	"context"
	"sync"
	"time"

	"lapse/internal/render"
)

const defaultCapacity = 256

// Hub stores recent events, wakes waiting readers and forwards every event to
// registered listeners in registration order.
type Hub struct {
	mu        sync.Mutex
	cond      *sync.Cond
	capacity  int
	buffer    []Event
	nextSeq   uint64
	listeners []Listener
	now       func() time.Time
}

// NewHub constructs a hub buffering at most capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	h := &Hub{capacity: capacity, now: time.Now}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Register appends listener to the delivery list.
func (h *Hub) Register(listener Listener) {
	if h == nil || listener == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, listener)
	h.mu.Unlock()
}

// Publish stamps, buffers and delivers evt. Listeners run on the caller's
// goroutine after the hub lock is released.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	listeners := append([]Listener(nil), h.listeners...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, listener := range listeners {
		evt.Dispatch(listener)
	}
	return evt
}

func (h *Hub) PrerenderStart(p render.Payload) {
	h.Publish(Event{Type: TypePrerenderStart, Payload: &p})
}

func (h *Hub) RenderStart(p render.Payload) {
	h.Publish(Event{Type: TypeRenderStart, Payload: &p})
}

func (h *Hub) RenderSuccess(p render.Payload) {
	h.Publish(Event{Type: TypeRenderSuccess, Payload: &p})
}

func (h *Hub) RenderError(p render.Payload, err *render.Error) {
	h.Publish(Event{Type: TypeRenderError, Payload: &p, Error: err})
}

func (h *Hub) RenderEnd() {
	h.Publish(Event{Type: TypeRenderEnd})
}

// Fetch returns buffered events with a sequence greater than since, plus the
// cursor to pass as since on the next call. When wait is true it blocks until
// one arrives or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	startIdx := -1
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, h.nextSeq
	}
	end := startIdx + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]Event, end-startIdx)
	copy(out, h.buffer[startIdx:end])
	if end < len(h.buffer) {
		// Truncated page: resume right after the last event returned.
		return out, out[len(out)-1].Sequence
	}
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
