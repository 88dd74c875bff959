// Package worker runs matting work off the request goroutines. Interactive work
// (single images, webcam frames) and batch work (whole videos) have separate
// worker sets and queues so a long video never starves a live stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("worker queue full")
)

type Class string

const (
	Interactive Class = "interactive"
	Batch       Class = "batch"
)

type Config struct {
	InteractiveWorkers int
	BatchWorkers       int
	QueueSize          int
}

type task struct {
	run  func(ctx context.Context) error
	done chan error
}

type Pool struct {
	logger *zap.Logger
	queues map[Class]chan task
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.InteractiveWorkers < 1 {
		cfg.InteractiveWorkers = 1
	}
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	p := &Pool{
		logger: logger,
		queues: map[Class]chan task{
			Interactive: make(chan task, cfg.QueueSize),
			Batch:       make(chan task, cfg.QueueSize),
		},
	}
	p.start(Interactive, cfg.InteractiveWorkers)
	p.start(Batch, cfg.BatchWorkers)

	logger.Info("worker pool started",
		zap.Int("interactive_workers", cfg.InteractiveWorkers),
		zap.Int("batch_workers", cfg.BatchWorkers),
		zap.Int("queue_size", cfg.QueueSize),
	)
	return p
}

func (p *Pool) start(class Class, n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker(class, i)
	}
}

func (p *Pool) worker(class Class, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.String("class", string(class)), zap.Int("worker_id", id))
	queue := p.queues[class]

	for t := range queue {
		metrics.PoolQueueDepth.WithLabelValues(string(class)).Set(float64(len(queue)))
		metrics.ActiveWorkers.WithLabelValues(string(class)).Inc()
		err := p.run(t, log)
		metrics.ActiveWorkers.WithLabelValues(string(class)).Dec()
		if t.done != nil {
			t.done <- err
		}
	}
	log.Debug("worker stopped")
}

// run executes one task. Tasks are not cancelled when their submitter gives up.
func (p *Pool) run(t task, log *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.run(context.Background())
}

// Do runs fn on an interactive worker and waits for its result. If ctx ends
// first, Do returns ctx.Err() and fn keeps running to completion.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t := task{run: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.queues[Interactive] <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}
	metrics.PoolQueueDepth.WithLabelValues(string(Interactive)).Set(float64(len(p.queues[Interactive])))

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go queues fn on a batch worker and returns immediately. It fails with
// ErrQueueFull rather than blocking the caller.
func (p *Pool) Go(fn func(ctx context.Context)) error {
	t := task{run: func(ctx context.Context) error {
		fn(ctx)
		return nil
	}}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queues[Batch] <- t:
		metrics.PoolQueueDepth.WithLabelValues(string(Batch)).Set(float64(len(p.queues[Batch])))
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for queued tasks to finish or ctx to end.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
