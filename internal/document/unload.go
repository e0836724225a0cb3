package document

import (
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// UnloadProject tears the document down to Unloaded. An active load is
// cancelled first and waited for. Every attached view is destroyed and
// removed before UnloadProject returns; asyncViewTeardown is passed on to
// the views via SetAsyncDestroy.
func (d *Document) UnloadProject(asyncViewTeardown bool) error {
	var pending <-chan struct{}
	if err := d.do(func() {
		if d.activeLoad != nil {
			d.activeLoad.Cancel()
			pending = d.activeLoad.Done()
		}
	}); err != nil {
		return err
	}

	// wait off the loop so the load callback can still be delivered
	if pending != nil {
		<-pending
	}

	return d.do(func() {
		if d.state == models.StateLoaded {
			d.unload(asyncViewTeardown)
		}
	})
}

func (d *Document) unload(asyncViewTeardown bool) {
	d.state = models.StateUnloading
	d.registry.Fire(views.KindUnloadProject)

	d.engine.DetachAll()

	for _, v := range d.registry.Views() {
		v.SetAsyncDestroy(asyncViewTeardown)
		v.DestroyView()
		d.registry.Detach(v)
	}

	if d.ds != nil {
		d.closeDataset(d.ds)
	}
	d.ds = nil
	d.tree = nil
	d.bindings = nil
	d.title = ""
	d.filePath = ""
	d.dirty = false
	d.history.Clear()

	d.state = models.StateUnloaded
	d.logger.Info("project unloaded")
	d.registry.Fire(views.KindProjectStateChanged)
}
