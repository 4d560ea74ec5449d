package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lapse/internal/queue"
	"lapse/internal/render"
)

func descriptor(id string) *render.Descriptor {
	return &render.Descriptor{JobID: id}
}

func TestQueueIsFIFO(t *testing.T) {
	q := queue.New()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(descriptor(id)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if q.Len() != 3 || q.Unfinished() != 3 {
		t.Fatalf("unexpected depth len=%d unfinished=%d", q.Len(), q.Unfinished())
	}
	pending := q.Pending()
	if len(pending) != 3 || pending[0].Descriptor.JobID != "a" || pending[0].EnqueuedAt.IsZero() {
		t.Fatalf("unexpected pending snapshot %+v", pending)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Get(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.JobID != want {
			t.Fatalf("expected %s, got %s", want, got.JobID)
		}
	}
	if q.Len() != 0 || q.Unfinished() != 3 {
		t.Fatalf("expected items fetched but unfinished, len=%d unfinished=%d", q.Len(), q.Unfinished())
	}
}

func TestQueueGetTimesOut(t *testing.T) {
	q := queue.New()
	start := time.Now()
	got, err := q.Get(context.Background(), 20*time.Millisecond)
	if err != nil || got != nil {
		t.Fatalf("expected empty timeout, got %v %v", got, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("Get returned before the timeout elapsed")
	}
}

func TestQueueGetWakesOnEnqueue(t *testing.T) {
	q := queue.New()
	result := make(chan *render.Descriptor, 1)
	go func() {
		desc, _ := q.Get(context.Background(), 5*time.Second)
		result <- desc
	}()
	time.Sleep(10 * time.Millisecond)
	if err := q.Enqueue(descriptor("late")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case desc := <-result:
		if desc == nil || desc.JobID != "late" {
			t.Fatalf("unexpected descriptor %+v", desc)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not wake")
	}
}

func TestQueueGetHonorsContext(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Get(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestQueueJoinWaitsForTaskDone(t *testing.T) {
	q := queue.New()
	if err := q.Join(context.Background()); err != nil {
		t.Fatalf("Join on empty queue: %v", err)
	}
	_ = q.Enqueue(descriptor("a"))
	_ = q.Enqueue(descriptor("b"))

	joined := make(chan error, 1)
	go func() { joined <- q.Join(context.Background()) }()

	for i := 0; i < 2; i++ {
		if _, err := q.Get(context.Background(), time.Second); err != nil {
			t.Fatalf("Get: %v", err)
		}
		select {
		case <-joined:
			t.Fatal("Join returned before all tasks were done")
		default:
		}
		q.TaskDone()
	}
	select {
	case err := <-joined:
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Join did not return")
	}
	q.TaskDone()
	if q.Unfinished() != 0 {
		t.Fatalf("expected extra TaskDone to be ignored, got %d", q.Unfinished())
	}
}

func TestQueueClose(t *testing.T) {
	q := queue.New()
	_ = q.Enqueue(descriptor("a"))
	q.Close()
	if err := q.Enqueue(descriptor("b")); !errors.Is(err, queue.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if desc, err := q.Get(context.Background(), time.Second); err != nil || desc.JobID != "a" {
		t.Fatalf("expected remaining entry to drain, got %v %v", desc, err)
	}
	if _, err := q.Get(context.Background(), time.Second); !errors.Is(err, queue.ErrClosed) {
		t.Fatalf("expected ErrClosed after drain, got %v", err)
	}
}
