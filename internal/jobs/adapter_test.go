package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu      sync.Mutex
	results []any
	errs    []error
	calls   chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{calls: make(chan struct{}, 16)}
}

func (l *recordingListener) OnJobResult(_ *Adapter, result any) {
	l.mu.Lock()
	l.results = append(l.results, result)
	l.mu.Unlock()
	l.calls <- struct{}{}
}

func (l *recordingListener) OnJobFailed(_ *Adapter, err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	l.calls <- struct{}{}
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results) + len(l.errs)
}

func (l *recordingListener) wait(t *testing.T) {
	t.Helper()
	select {
	case <-l.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	pool := NewPool(2, 4, nil)
	t.Cleanup(pool.Close)
	return pool
}

func TestAdapter_DeliversResultOnce(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()

	a := NewAdapter("sum", func(tok *Token) (any, error) {
		return 42, nil
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	listener.wait(t)
	<-a.Done()

	require.Equal(t, StatusCompleted, a.Status())
	require.Equal(t, []any{42}, listener.results)
	require.Empty(t, listener.errs)
}

func TestAdapter_DeliversFailure(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	boom := errors.New("boom")

	a := NewAdapter("failing", func(tok *Token) (any, error) {
		return nil, boom
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	listener.wait(t)

	require.Equal(t, StatusFailed, a.Status())
	require.Len(t, listener.errs, 1)
	require.ErrorIs(t, listener.errs[0], boom)
}

func TestAdapter_PanicBecomesFailure(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()

	a := NewAdapter("panicky", func(tok *Token) (any, error) {
		panic("kaboom")
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	listener.wait(t)

	require.Equal(t, StatusFailed, a.Status())
	require.Contains(t, listener.errs[0].Error(), "kaboom")
}

func TestAdapter_CancelTwiceDeliversOnce(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	running := make(chan struct{})

	a := NewAdapter("cancellable", func(tok *Token) (any, error) {
		close(running)
		<-tok.Context().Done()
		return nil, tok.Err()
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	<-running

	a.Cancel()
	a.Cancel()
	listener.wait(t)
	<-a.Done()
	a.Cancel()

	// give a stray second callback the chance to show up
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, listener.count())
	require.Equal(t, StatusCancelled, a.Status())
	require.ErrorIs(t, listener.errs[0], ErrCancelled)
}

func TestAdapter_CancelAfterCompletion(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()

	a := NewAdapter("quick", func(tok *Token) (any, error) {
		return "done", nil
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	listener.wait(t)
	<-a.Done()

	a.Cancel()
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, 1, listener.count())
	require.Equal(t, StatusCompleted, a.Status())
}

func TestAdapter_CancelBeforeRunSkipsJob(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	ran := false

	a := NewAdapter("never", func(tok *Token) (any, error) {
		ran = true
		return nil, nil
	}, listener)

	a.Cancel()
	require.NoError(t, a.Start(context.Background(), pool))
	listener.wait(t)

	require.False(t, ran)
	require.Equal(t, StatusCancelled, a.Status())
}

func TestAdapter_OrphanSuppressesCallback(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	release := make(chan struct{})

	a := NewAdapter("orphaned", func(tok *Token) (any, error) {
		<-release
		return "late", nil
	}, listener)

	require.NoError(t, a.Start(context.Background(), pool))
	a.Orphan()
	close(release)
	<-a.Done()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, listener.count())
}

func TestAdapter_DeliversThroughDeliverer(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	mailbox := make(chan func(), 1)

	a := NewAdapter("routed", func(tok *Token) (any, error) {
		return 1, nil
	}, listener, WithDeliverer(func(fn func()) bool {
		mailbox <- fn
		return true
	}))

	require.NoError(t, a.Start(context.Background(), pool))
	<-a.Done()
	require.Equal(t, 0, listener.count())

	fn := <-mailbox
	fn()
	require.Equal(t, 1, listener.count())
}

func TestAdapter_StartTwice(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()

	a := NewAdapter("once", func(tok *Token) (any, error) { return nil, nil }, listener)
	require.NoError(t, a.Start(context.Background(), pool))
	require.ErrorIs(t, a.Start(context.Background(), pool), ErrAlreadyStarted)
	listener.wait(t)
}

func TestAdapter_StartOnClosedPool(t *testing.T) {
	pool := NewPool(1, 0, nil)
	pool.Close()
	listener := newRecordingListener()

	a := NewAdapter("rejected", func(tok *Token) (any, error) { return nil, nil }, listener)
	err := a.Start(context.Background(), pool)
	require.ErrorIs(t, err, ErrPoolClosed)
	<-a.Done()
	require.Equal(t, StatusFailed, a.Status())
	require.Equal(t, 0, listener.count())
}

func TestAdapter_Metrics(t *testing.T) {
	pool := newTestPool(t)
	listener := newRecordingListener()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	ok := NewAdapter("ok", func(tok *Token) (any, error) { return nil, nil }, listener, WithMetrics(metrics))
	bad := NewAdapter("bad", func(tok *Token) (any, error) { return nil, errors.New("x") }, listener, WithMetrics(metrics))

	require.NoError(t, ok.Start(context.Background(), pool))
	require.NoError(t, bad.Start(context.Background(), pool))
	listener.wait(t)
	listener.wait(t)
	<-ok.Done()
	<-bad.Done()

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.total.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.total.WithLabelValues("failed")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))
}
