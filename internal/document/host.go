package document

import (
	"time"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// host exposes the loop-owned document state to the attach engine. It is
// only ever used from the document loop.
type host struct {
	d *Document
}

func (h host) Info() models.DocumentInfo {
	return models.DocumentInfo{ID: h.d.id, FilePath: h.d.filePath}
}

func (h host) Loaded() bool                          { return h.d.state == models.StateLoaded }
func (h host) Tree() *models.Folder                  { return h.d.tree }
func (h host) Dataset() dataset.WorkingDataset       { return h.d.ds }
func (h host) Bindings() []*models.DataSourceBinding { return h.d.bindings }
func (h host) Views() *views.Registry                { return h.d.registry }
func (h host) Now() time.Time                        { return h.d.now() }

func (h host) SetBindings(bindings []*models.DataSourceBinding) {
	h.d.bindings = bindings
}

func (h host) MarkDirty() {
	h.d.dirty = true
	h.d.revision++
}

func (h host) Fire(kind views.Kind) {
	h.d.registry.Fire(kind)
}

func (h host) Defer(fn func()) {
	h.d.deferred = append(h.d.deferred, fn)
}
