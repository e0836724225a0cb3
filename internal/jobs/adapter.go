package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/jakoblorz/go-projectdoc/internal/ids"
	"go.uber.org/zap"
)

// Listener receives the outcome of an adapter's job. Exactly one of the two
// methods is called, exactly once. Removing the adapter from whatever
// collection the listener tracks it in is the listener's responsibility.
type Listener interface {
	OnJobResult(a *Adapter, result any)
	OnJobFailed(a *Adapter, err error)
}

// Deliverer runs fn on the owner's execution context. It returns false
// when the owner is gone and fn will never run.
type Deliverer func(fn func()) bool

// Inline delivers on the calling goroutine.
func Inline(fn func()) bool {
	fn()
	return true
}

// Adapter wraps one job, tracks its status and turns completion into a
// single listener callback.
type Adapter struct {
	id       string
	name     string
	job      Job
	listener Listener
	deliver  Deliverer
	logger   *zap.Logger
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	status  Status
	started bool

	orphaned  atomic.Bool
	delivered atomic.Bool
	done      chan struct{}
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithDeliverer routes callbacks through d instead of the worker goroutine.
func WithDeliverer(d Deliverer) AdapterOption {
	return func(a *Adapter) {
		a.deliver = d
	}
}

// WithLogger sets the logger used for job failures.
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMetrics records job outcomes on m.
func WithMetrics(m *Metrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// NewAdapter creates a pending adapter for job.
func NewAdapter(name string, job Job, listener Listener, options ...AdapterOption) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		id:       ids.NewJobID(),
		name:     name,
		job:      job,
		listener: listener,
		deliver:  Inline,
		logger:   zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	for _, option := range options {
		option(a)
	}
	a.logger = a.logger.With(zap.String("job_id", a.id), zap.String("job", name))

	return a
}

// ID returns the adapter's identifier.
func (a *Adapter) ID() string {
	return a.id
}

// Name returns the descriptive job name.
func (a *Adapter) Name() string {
	return a.name
}

// Status returns the current status.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Done is closed once the job body has returned (or was skipped because it
// was cancelled before running).
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Start enqueues the job on pool. If Start returns an error the job will
// never run and no callback will be delivered.
func (a *Adapter) Start(ctx context.Context, pool *Pool) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	if err := pool.Submit(ctx, a.run); err != nil {
		a.mu.Lock()
		a.status = StatusFailed
		a.mu.Unlock()
		a.delivered.Store(true)
		a.cancel()
		close(a.done)
		return fmt.Errorf("failed to enqueue %s: %w", a.name, err)
	}

	a.metrics.started()
	return nil
}

// Cancel requests cooperative cancellation. Calling it more than once, or
// after the job finished, has no further effect.
func (a *Adapter) Cancel() {
	a.cancel()
}

// Orphan cancels the job and guarantees that no callback reaches the
// listener from now on. Owners call it during teardown.
func (a *Adapter) Orphan() {
	a.orphaned.Store(true)
	a.cancel()
}

func (a *Adapter) run() {
	if a.ctx.Err() != nil {
		a.finish(nil, ErrCancelled)
		return
	}

	a.mu.Lock()
	a.status = StatusRunning
	a.mu.Unlock()

	result, err := a.invoke()
	a.finish(result, err)
}

// invoke runs the job body, converting a panic into an error so it never
// escapes the worker goroutine.
func (a *Adapter) invoke() (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("job panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("job %s panicked: %v", a.name, r)
		}
	}()
	return a.job(NewToken(a.ctx))
}

func (a *Adapter) finish(result any, err error) {
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || a.ctx.Err() != nil {
			status = StatusCancelled
			if !errors.Is(err, ErrCancelled) {
				err = fmt.Errorf("%w: %w", ErrCancelled, err)
			}
		}
	}

	a.mu.Lock()
	a.status = status
	a.mu.Unlock()

	a.metrics.finished(status)
	defer func() {
		a.cancel()
		close(a.done)
	}()

	if status == StatusFailed {
		a.logger.Warn("job failed", zap.Error(err))
	}

	if a.orphaned.Load() || !a.delivered.CompareAndSwap(false, true) {
		return
	}

	ok := a.deliver(func() {
		if a.orphaned.Load() {
			return
		}
		if err != nil {
			a.listener.OnJobFailed(a, err)
			return
		}
		a.listener.OnJobResult(a, result)
	})
	if !ok {
		a.logger.Debug("job outcome dropped: owner gone")
	}
}
