// Package document implements the project document: a single-writer owner
// of a content tree, its working dataset, data-source bindings and the
// views observing it.
//
// Every public method runs its body on the document's own goroutine, so
// structural mutations are totally ordered. Background jobs hand their
// results back through the same goroutine. Methods must not be called from
// inside view or extension callbacks, which already run on it.
package document

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/attach"
	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/ids"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/labeler"
	"github.com/jakoblorz/go-projectdoc/internal/logging"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/providers"
	"github.com/jakoblorz/go-projectdoc/internal/resolver"
	"github.com/jakoblorz/go-projectdoc/internal/undo"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// Options configures a Document.
type Options struct {
	FS     filesystem.FileSystem
	Config *config.Config

	// Dataset creates the working dataset for each load. Defaults to an
	// in-memory dataset seeded from Config.Dataset.
	Dataset dataset.Factory

	Providers  *providers.Registry
	Labeler    labeler.Labeler
	Extensions []attach.Extension

	// Pool runs background jobs. When nil the document creates and owns
	// a pool sized by Config.Jobs.
	Pool    *jobs.Pool
	Metrics *jobs.Metrics
	Logger  *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Document is a project document. Create it with New and release it with
// Close.
type Document struct {
	id      string
	fs      filesystem.FileSystem
	cfg     *config.Config
	factory dataset.Factory
	pool    *jobs.Pool
	ownPool bool
	metrics *jobs.Metrics
	logger  *zap.Logger
	now     func() time.Time

	resolver *resolver.Resolver
	engine   *attach.Engine
	registry *views.Registry
	history  *undo.Ring

	mbox      *mailbox
	closeOnce sync.Once

	// loop-owned state
	state    models.State
	filePath string
	title    string
	tree     *models.Folder
	ds       dataset.WorkingDataset
	bindings []*models.DataSourceBinding
	dirty    bool
	revision uint64
	lastErr  error
	deferred []func()

	adapters   map[*jobs.Adapter]struct{}
	activeLoad *jobs.Adapter
	load       *loadWait
	saves      map[*jobs.Adapter]chan error
}

// New creates an unloaded document and starts its loop.
func New(opts Options) (*Document, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("document requires a filesystem")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	lbl := opts.Labeler
	if lbl == nil {
		tmpl, err := labeler.NewTemplate(cfg.Labels.Template)
		if err != nil {
			return nil, err
		}
		lbl = tmpl
	}

	factory := opts.Dataset
	if factory == nil {
		factory = dataset.NewMemoryFactory(cfg.Dataset)
	}

	d := &Document{
		id:       ids.NewDocumentID(),
		fs:       opts.FS,
		cfg:      cfg,
		factory:  factory,
		pool:     opts.Pool,
		metrics:  opts.Metrics,
		now:      opts.Now,
		state:    models.StateUnloaded,
		mbox:     newMailbox(),
		history:  undo.NewRing(cfg.Document.UndoCapacity),
		adapters: make(map[*jobs.Adapter]struct{}),
		saves:    make(map[*jobs.Adapter]chan error),
	}
	d.logger = logging.OrNop(opts.Logger).With(zap.String("document", d.id))
	if d.now == nil {
		d.now = time.Now
	}
	if d.pool == nil {
		d.pool = jobs.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, d.logger)
		d.ownPool = true
	}

	d.resolver = resolver.New(cfg.Document.ResolveBatchSize, d.logger)
	d.registry = views.NewRegistry(d.id)
	d.engine = attach.NewEngine(host{d}, lbl, opts.Providers,
		attach.WithLogger(d.logger),
		attach.WithMaterializeTimeout(cfg.Document.MaterializeTimeout),
		attach.WithExtensions(opts.Extensions...))

	go d.mbox.run(d.runDeferred)
	return d, nil
}

// do runs fn on the document loop and waits for it. A panic inside fn is
// re-raised on the calling goroutine.
func (d *Document) do(fn func()) error {
	done := make(chan struct{})
	var panicked any
	ok := d.mbox.post(func() {
		defer func() {
			panicked = recover()
			close(done)
		}()
		fn()
	})
	if !ok {
		return ErrClosed
	}
	<-done
	if panicked != nil {
		panic(panicked)
	}
	return nil
}

// deliver is the jobs.Deliverer routing callbacks onto the loop.
func (d *Document) deliver(fn func()) bool {
	return d.mbox.post(fn)
}

func (d *Document) runDeferred() {
	for len(d.deferred) > 0 {
		fn := d.deferred[0]
		d.deferred = d.deferred[1:]
		fn()
	}
}

func (d *Document) adapterOptions() []jobs.AdapterOption {
	return []jobs.AdapterOption{
		jobs.WithDeliverer(d.deliver),
		jobs.WithLogger(d.logger),
		jobs.WithMetrics(d.metrics),
	}
}

// ID returns the document's identity.
func (d *Document) ID() string {
	return d.id
}

// State returns the lifecycle state.
func (d *Document) State() models.State {
	state := models.StateUnloaded
	_ = d.do(func() { state = d.state })
	return state
}

// FilePath returns the path the document was loaded from or last saved to.
func (d *Document) FilePath() string {
	var path string
	_ = d.do(func() { path = d.filePath })
	return path
}

// Title returns the project title.
func (d *Document) Title() string {
	var title string
	_ = d.do(func() { title = d.title })
	return title
}

// Dirty reports unsaved mutations.
func (d *Document) Dirty() bool {
	var dirty bool
	_ = d.do(func() { dirty = d.dirty })
	return dirty
}

// LastError returns the most recent background failure: a failed load or
// save, or a failed import.
func (d *Document) LastError() error {
	var err error
	_ = d.do(func() { err = d.lastErr })
	return err
}

// Bindings returns copies of the document's data-source bindings.
func (d *Document) Bindings() []models.DataSourceBinding {
	var out []models.DataSourceBinding
	_ = d.do(func() {
		for _, b := range d.bindings {
			c := *b
			c.Config = make(map[string]string, len(b.Config))
			for k, v := range b.Config {
				c.Config[k] = v
			}
			out = append(out, c)
		}
	})
	return out
}

// Binding returns the live binding with the given label, for passing to
// AttachBinding, DetachBinding or RemoveBinding.
func (d *Document) Binding(label string) *models.DataSourceBinding {
	var found *models.DataSourceBinding
	_ = d.do(func() {
		for _, b := range d.bindings {
			if b.Label == label {
				found = b
				return
			}
		}
	})
	return found
}

// Inspect runs fn on the document loop with the current tree, which is nil
// unless the document is loaded. fn must not retain the tree.
func (d *Document) Inspect(fn func(tree *models.Folder)) error {
	return d.do(func() { fn(d.tree) })
}

// RunningJobs returns the number of tracked background jobs.
func (d *Document) RunningJobs() int {
	var n int
	_ = d.do(func() { n = len(d.adapters) })
	return n
}

// AttachView registers v and returns its instance index.
func (d *Document) AttachView(v views.View) (int, error) {
	var idx int
	err := d.do(func() { idx = d.registry.Attach(v) })
	return idx, err
}

// DetachView removes v.
func (d *Document) DetachView(v views.View) bool {
	var ok bool
	_ = d.do(func() { ok = d.registry.Detach(v) })
	return ok
}

// ViewIndex returns the instance index of an attached view.
func (d *Document) ViewIndex(v views.View) (int, bool) {
	var (
		idx int
		ok  bool
	)
	_ = d.do(func() { idx, ok = d.registry.Index(v) })
	return idx, ok
}

// Subscribe registers an observer for lifecycle events.
func (d *Document) Subscribe(sub views.EventSubscriber) error {
	return d.do(func() { d.registry.Subscribe(sub) })
}

// Flush waits until every deferred event fired so far was delivered.
func (d *Document) Flush() {
	var registry *views.Registry
	if d.do(func() { registry = d.registry }) == nil {
		registry.Flush()
	}
}

// Close cancels every tracked job, unloads the document and stops its
// loop. No job callback reaches the document afterwards.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		_ = d.do(func() {
			for a := range d.adapters {
				a.Orphan()
			}
			d.adapters = make(map[*jobs.Adapter]struct{})
			d.activeLoad = nil

			for a, ch := range d.saves {
				ch <- ErrClosed
				delete(d.saves, a)
			}
			if d.load != nil && !d.load.finished() {
				d.load.finish(ErrClosed)
			}

			if d.state == models.StateLoading {
				d.state = models.StateUnloaded
			}
			if d.state == models.StateLoaded {
				d.unload(true)
			}
		})
		d.mbox.close()
		<-d.mbox.done

		d.registry.Close()
		if d.ownPool {
			d.pool.Close()
		}
	})
	return nil
}

// closeDataset releases ds if it holds resources.
func (d *Document) closeDataset(ds dataset.WorkingDataset) {
	if closer, ok := ds.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			d.logger.Warn("failed to close working dataset", zap.Error(err))
		}
	}
}

// startJob starts an adapter on the pool and tracks it.
func (d *Document) startJob(a *jobs.Adapter) error {
	if err := a.Start(context.Background(), d.pool); err != nil {
		return err
	}
	d.adapters[a] = struct{}{}
	return nil
}
