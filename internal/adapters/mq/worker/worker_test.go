package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/planly/planly/internal/adapters/events"
	"github.com/planly/planly/internal/adapters/mq/queue"
)

// capturingPublisher records every event it receives.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.ScoreEvent
	fail   bool
}

func (p *capturingPublisher) Publish(ctx context.Context, e events.ScoreEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorker_PublishesQueuedEvents(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	pub := &capturingPublisher{}
	w := NewWorker(q, pub, WithName("test-worker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 3; i++ {
		if !q.Enqueue(ctx, events.ScoreEvent{UserID: "u1", Score: float64(i)}) {
			t.Fatal("expected enqueue to succeed")
		}
	}

	waitFor(t, 2*time.Second, func() bool { return pub.count() == 3 })

	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestWorker_SurvivesPublishErrors(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	pub := &capturingPublisher{fail: true}
	w := NewWorker(q, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.Enqueue(ctx, events.ScoreEvent{UserID: "u1"})

	// A failed publish must not kill the loop; the worker still shuts down
	// cleanly afterwards.
	time.Sleep(100 * time.Millisecond)
	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestWorker_StopsWhenQueueCloses(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(1))
	pub := &capturingPublisher{}
	w := NewWorker(q, pub)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	_ = q.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}

func TestPool_StartAndStop(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(100))
	pub := &capturingPublisher{}
	pool := NewPool(3, q, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		if !q.Enqueue(ctx, events.ScoreEvent{UserID: "u1", Score: float64(i)}) {
			t.Fatal("expected enqueue to succeed")
		}
	}

	waitFor(t, 2*time.Second, func() bool { return pub.count() == 20 })
	pool.Stop()
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(100))
	pub := &capturingPublisher{}
	pool := NewPool(2, q, pub)

	ctx := context.Background()
	pool.Start(ctx)

	for i := 0; i < 10; i++ {
		q.Enqueue(ctx, events.ScoreEvent{UserID: "u1", Score: float64(i)})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
	if got := pub.count(); got != 10 {
		t.Errorf("expected 10 published events after drain, got %d", got)
	}
}

func TestPool_DefaultsWorkerCount(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(1))
	pool := NewPool(0, q, &capturingPublisher{})
	if got := len(pool.workers); got != defaultWorkerCount {
		t.Errorf("expected %d workers, got %d", defaultWorkerCount, got)
	}
}
