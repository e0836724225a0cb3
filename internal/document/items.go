package document

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/undo"
)

// AddItems attaches items into the folder titled folder (created when
// missing; empty means the root) and adds bindings, skipping bindings
// that duplicate an enabled one.
func (d *Document) AddItems(folder string, items []*models.ContentItem, bindings []*models.DataSourceBinding) error {
	var err error
	if doErr := d.do(func() { err = d.addItems(folder, items, bindings) }); doErr != nil {
		return doErr
	}
	return err
}

func (d *Document) addItems(folder string, items []*models.ContentItem, bindings []*models.DataSourceBinding) error {
	if d.state != models.StateLoaded {
		return ErrNotLoaded
	}

	var fresh []*models.ContentItem
	for _, item := range items {
		if item != nil && !d.engine.IsRegistered(item) {
			fresh = append(fresh, item)
		}
	}
	if err := d.engine.AttachItems(folder, fresh); err != nil {
		return err
	}
	added := d.engine.AddBindings(bindings)

	if len(fresh) == 0 && len(added) == 0 {
		return nil
	}
	d.history.Push(undo.Func{
		Label: fmt.Sprintf("add %d items", len(fresh)),
		OnUndo: func() error {
			d.engine.RemoveItems(fresh)
			for _, b := range added {
				d.engine.RemoveBinding(b)
			}
			return nil
		},
		OnRedo: func() error {
			if err := d.engine.AttachItems(folder, fresh); err != nil {
				return err
			}
			d.engine.AddBindings(added)
			return nil
		},
	})
	return nil
}

// removed remembers where an item lived so removal can be undone.
type removed struct {
	folder  *models.Folder
	item    *models.ContentItem
	enabled bool
}

// RemoveItems detaches items and removes them from the tree. It reports
// whether anything was removed.
func (d *Document) RemoveItems(items []*models.ContentItem) bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoaded {
			return
		}

		var record []removed
		for _, item := range items {
			if item == nil {
				continue
			}
			if owner := d.tree.FolderOf(item); owner != nil {
				record = append(record, removed{folder: owner, item: item, enabled: item.Enabled})
			}
		}

		ok = d.engine.RemoveItems(items)
		if !ok {
			return
		}
		d.history.Push(undo.Func{
			Label: fmt.Sprintf("remove %d items", len(record)),
			OnUndo: func() error {
				for _, r := range record {
					r.item.Enabled = r.enabled
					d.engine.RestoreItems(r.folder, []*models.ContentItem{r.item})
				}
				return nil
			},
			OnRedo: func() error {
				targets := make([]*models.ContentItem, 0, len(record))
				for _, r := range record {
					targets = append(targets, r.item)
				}
				d.engine.RemoveItems(targets)
				return nil
			},
		})
	})
	return ok
}

// AttachBinding attaches b to the working dataset.
func (d *Document) AttachBinding(b *models.DataSourceBinding) bool {
	var ok bool
	_ = d.do(func() { ok = d.engine.AttachBinding(b) })
	return ok
}

// DetachBinding detaches b without removing it from the document.
func (d *Document) DetachBinding(b *models.DataSourceBinding) bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoaded {
			return
		}
		ok = d.engine.DetachBinding(b)
	})
	return ok
}

// RemoveBinding detaches b if needed and removes it from the document.
func (d *Document) RemoveBinding(b *models.DataSourceBinding) bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoaded {
			return
		}
		ok = d.engine.RemoveBinding(b)
	})
	return ok
}

// Undo reverts the most recent AddItems or RemoveItems.
func (d *Document) Undo() bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoaded {
			return
		}
		var err error
		if ok, err = d.history.Undo(); err != nil {
			d.lastErr = err
			d.logger.Warn("undo failed", zap.Error(err))
		}
	})
	return ok
}

// Redo re-applies the most recently undone command.
func (d *Document) Redo() bool {
	var ok bool
	_ = d.do(func() {
		if d.state != models.StateLoaded {
			return
		}
		var err error
		if ok, err = d.history.Redo(); err != nil {
			d.lastErr = err
			d.logger.Warn("redo failed", zap.Error(err))
		}
	})
	return ok
}

// StartImport runs job in the background and adds the items it produces
// to folder. The job must return []*models.ContentItem.
func (d *Document) StartImport(folder string, job jobs.Job) (*jobs.Adapter, error) {
	var (
		a   *jobs.Adapter
		err error
	)
	if doErr := d.do(func() {
		if d.state != models.StateLoaded {
			err = ErrNotLoaded
			return
		}
		a = jobs.NewAdapter("import", job, importListener{d: d, folder: folder}, d.adapterOptions()...)
		if err = d.startJob(a); err != nil {
			a = nil
		}
	}); doErr != nil {
		return nil, doErr
	}
	return a, err
}

type importListener struct {
	d      *Document
	folder string
}

func (l importListener) OnJobResult(a *jobs.Adapter, result any) {
	d := l.d
	delete(d.adapters, a)

	items, ok := result.([]*models.ContentItem)
	if !ok {
		d.lastErr = fmt.Errorf("import %s returned %T", a.ID(), result)
		d.logger.Error("import returned unexpected result", zap.String("job_id", a.ID()))
		return
	}
	if d.state != models.StateLoaded {
		d.logger.Info("dropping import result: document not loaded", zap.String("job_id", a.ID()))
		return
	}
	if err := d.addItems(l.folder, items, nil); err != nil {
		d.lastErr = err
		d.logger.Error("failed to add imported items", zap.Error(err))
		return
	}
	d.logger.Info("import finished", zap.String("folder", l.folder), zap.Int("items", len(items)))
}

func (l importListener) OnJobFailed(a *jobs.Adapter, err error) {
	d := l.d
	delete(d.adapters, a)
	if errors.Is(err, jobs.ErrCancelled) {
		d.logger.Info("import cancelled", zap.String("job_id", a.ID()))
		return
	}
	d.lastErr = err
	d.logger.Error("import failed", zap.String("job_id", a.ID()), zap.Error(err))
}
