package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool is a bounded worker pool. Submit blocks while the queue is full,
// which pushes back on producers instead of growing without bound.
type Pool struct {
	tasks  chan func()
	closed chan struct{}
	logger *zap.Logger

	mu        sync.RWMutex
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPool starts workers goroutines reading from a queue of queueSize.
func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		tasks:  make(chan func(), queueSize),
		closed: make(chan struct{}),
		logger: logger,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	logger.Debug("worker pool started",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize))

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues task. It blocks until there is room in the queue, ctx is
// done, or the pool is closed.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}
}

// Close stops accepting work, lets queued tasks finish and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)

		p.mu.Lock()
		close(p.tasks)
		p.mu.Unlock()

		p.wg.Wait()
		p.logger.Debug("worker pool stopped")
	})
}
