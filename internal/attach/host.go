// Package attach implements attach/detach of content items and data-source
// bindings against a document's working dataset.
package attach

import (
	"time"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// Host is the document state the engine operates on. All methods are
// called on the document's owning goroutine.
type Host interface {
	Info() models.DocumentInfo
	Loaded() bool
	Tree() *models.Folder
	Dataset() dataset.WorkingDataset
	Bindings() []*models.DataSourceBinding
	SetBindings(bindings []*models.DataSourceBinding)
	Views() *views.Registry
	MarkDirty()
	Fire(kind views.Kind)

	// Defer schedules fn to run on the owning goroutine after the current
	// operation returns.
	Defer(fn func())

	Now() time.Time
}

// Extension is notified when items are attached or detached. Failures and
// panics are logged and never abort the surrounding batch.
type Extension interface {
	OnItemAttached(item *models.ContentItem, doc models.DocumentInfo) error
	OnItemDetached(item *models.ContentItem, doc models.DocumentInfo) error
}
