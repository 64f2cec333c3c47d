// Package worker drains the score event queue and publishes downstream.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/planly/planly/internal/adapters/events"
	"github.com/planly/planly/internal/adapters/mq/queue"
	"github.com/planly/planly/pkg/logger"
	"github.com/planly/planly/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	workerShutdownTimeout = 5 * time.Second
	publishTimeout        = 10 * time.Second
)

// Worker consumes score events and hands them to a publisher.
type Worker struct {
	queue     queue.Queue
	publisher events.Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q queue.Queue, p events.Publisher, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		publisher: p,
		name:      "publisher",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "publisher" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled, the queue closes, or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.publish(ctx, e); err != nil {
				w.logger.Error(ctx, "score event publish failed",
					logger.String("userID", e.UserID),
					logger.String("weekStart", e.WeekStart),
					logger.Error(err),
				)
			}
		}
	}
}

func (w *Worker) publish(ctx context.Context, e queue.Event) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := w.publisher.Publish(pubCtx, e); err != nil {
		metrics.RecordEventPublishError()
		return fmt.Errorf("publish score event for %s: %w", e.UserID, err)
	}
	metrics.RecordEventPublished()
	return nil
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple publish workers.
type Pool struct {
	workers []*Worker
	queue   queue.Queue

	logger logger.Logger
}

// NewPool creates a pool of workerCount publish workers.
func NewPool(workerCount int, q queue.Queue, p events.Publisher) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewWorker(q, p, WithName("publisher-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits up to a bounded timeout for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
