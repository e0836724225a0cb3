package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/resolver"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// loadWait is closed once a load finished, successfully or not.
type loadWait struct {
	done chan struct{}
	err  error
}

func newLoadWait() *loadWait {
	return &loadWait{done: make(chan struct{})}
}

func (w *loadWait) finish(err error) {
	w.err = err
	close(w.done)
}

func (w *loadWait) finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

type loadResult struct {
	project *codec.Project
	ds      dataset.WorkingDataset
	stats   resolver.Stats
}

// Load starts loading the project file at path in the background. It
// returns false without error when a load is already in progress or the
// document is loaded; only one load is ever active.
func (d *Document) Load(path string) (bool, error) {
	var (
		started bool
		err     error
	)
	if doErr := d.do(func() {
		if d.state == models.StateLoading || d.state == models.StateLoaded {
			return
		}
		if d.state != models.StateUnloaded {
			err = invalidState("load", d.state)
			return
		}
		started, err = d.startLoad(path)
	}); doErr != nil {
		return false, doErr
	}
	return started, err
}

func (d *Document) startLoad(path string) (bool, error) {
	a := jobs.NewAdapter("load", d.loadJob(path), loadListener{d}, d.adapterOptions()...)

	d.state = models.StateLoading
	d.filePath = path
	d.lastErr = nil
	d.load = newLoadWait()

	if err := d.startJob(a); err != nil {
		d.state = models.StateUnloaded
		d.filePath = ""
		d.lastErr = err
		d.load.finish(err)
		return false, err
	}
	d.activeLoad = a

	d.logger.Info("loading project", zap.String("path", path), zap.String("job_id", a.ID()))
	d.registry.Fire(views.KindProjectStateChanged)
	return true, nil
}

// loadJob reads, decodes and resolves off the document loop. Nothing here
// touches document state.
func (d *Document) loadJob(path string) jobs.Job {
	fs, factory, res := d.fs, d.factory, d.resolver
	return func(tok *jobs.Token) (any, error) {
		project, err := codec.Read(fs, path)
		if err != nil {
			return nil, err
		}
		if err := tok.Err(); err != nil {
			return nil, err
		}

		ds, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create working dataset: %w", err)
		}

		stats, err := res.Resolve(tok, project.Tree, ds)
		if err == nil {
			err = tok.Err()
		}
		if err != nil {
			d.closeDataset(ds)
			return nil, err
		}
		return &loadResult{project: project, ds: ds, stats: stats}, nil
	}
}

type loadListener struct {
	d *Document
}

func (l loadListener) OnJobResult(a *jobs.Adapter, result any) {
	d := l.d
	delete(d.adapters, a)
	if d.activeLoad == a {
		d.activeLoad = nil
	}

	res := result.(*loadResult)
	if d.state != models.StateLoading {
		d.closeDataset(res.ds)
		return
	}

	d.title = res.project.Title
	d.tree = res.project.Tree
	d.bindings = res.project.Bindings
	d.ds = res.ds
	d.state = models.StateLoaded
	d.dirty = res.stats.Resolved > 0
	d.history.Clear()

	d.attachData()

	d.logger.Info("project loaded",
		zap.String("path", d.filePath),
		zap.Int("items", len(d.tree.AllItems())),
		zap.Int("bindings", len(d.bindings)),
		zap.Int("resolved_ids", res.stats.Resolved),
		zap.Int("unresolved_ids", res.stats.Unresolved))
	d.load.finish(nil)
}

func (l loadListener) OnJobFailed(a *jobs.Adapter, err error) {
	d := l.d
	delete(d.adapters, a)
	if d.activeLoad == a {
		d.activeLoad = nil
	}
	if d.state != models.StateLoading {
		return
	}

	// nothing from the failed load survives
	d.state = models.StateUnloaded
	d.filePath = ""
	d.lastErr = err

	if errors.Is(err, jobs.ErrCancelled) {
		d.logger.Info("project load cancelled")
	} else {
		d.logger.Error("project load failed", zap.Error(err))
	}
	d.registry.Fire(views.KindProjectStateChanged)
	d.load.finish(err)
}

// attachData registers enabled items and every binding, then announces the
// new state.
func (d *Document) attachData() {
	items := d.engine.AttachExisting()
	bindings := d.engine.AttachBindings()
	d.logger.Debug("attached project data",
		zap.Int("items", items),
		zap.Int("bindings", bindings))
	d.registry.Fire(views.KindProjectStateChanged)
}

// AwaitLoad blocks until the most recent load finished and returns its
// error. It returns nil right away when no load was ever started.
func (d *Document) AwaitLoad(ctx context.Context) error {
	var w *loadWait
	if err := d.do(func() { w = d.load }); err != nil {
		return err
	}
	if w == nil {
		return nil
	}
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelLoading requests cancellation of the active load. The document
// returns to Unloaded once the job observes the request. It returns false
// when no load is active.
func (d *Document) CancelLoading() bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoading || d.activeLoad == nil {
			return
		}
		d.activeLoad.Cancel()
		ok = true
	})
	return ok
}

// NewProject turns an unloaded document into an empty loaded project that
// has never been saved.
func (d *Document) NewProject(title string) error {
	var err error
	if doErr := d.do(func() {
		if d.state != models.StateUnloaded {
			err = invalidState("create project", d.state)
			return
		}
		ds, dsErr := d.factory()
		if dsErr != nil {
			err = fmt.Errorf("failed to create working dataset: %w", dsErr)
			return
		}

		d.title = title
		d.tree = models.NewFolder("", time.Time{})
		d.bindings = nil
		d.ds = ds
		d.filePath = ""
		d.dirty = false
		d.history.Clear()
		d.state = models.StateLoaded
		d.registry.Fire(views.KindProjectStateChanged)
	}); doErr != nil {
		return doErr
	}
	return err
}
