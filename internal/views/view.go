// Package views keeps track of the observer views attached to a document
// and fans lifecycle events out to them.
package views

import "github.com/jakoblorz/go-projectdoc/internal/models"

// View is an observer owned by the GUI layer. The document only holds a
// non-owning reference. Implementations must be comparable (pointer types).
type View interface {
	// ClientLabel identifies the view's type, not the instance
	ClientLabel() string

	// DestroyView asks the view to release its resources
	DestroyView()

	// SetAsyncDestroy controls whether DestroyView may finish asynchronously
	SetAsyncDestroy(async bool)
}

// EventSubscriber is implemented by views (and other observers) that want
// lifecycle events.
type EventSubscriber interface {
	HandleEvent(ev Event)
}

// Displayer is implemented by views that display a payload. Detaching an
// item closes every Displayer whose payload is reachable from the item.
type Displayer interface {
	DisplayedPayload() *models.Payload
}

// Kind names a lifecycle event.
type Kind string

const (
	KindDataChanging        Kind = "data_changing"
	KindData                Kind = "data"
	KindProjectStateChanged Kind = "project_state_changed"
	KindViewsChanged        Kind = "views_changed"
	KindViewReleased        Kind = "view_released"
	KindUnloadProject       Kind = "unload_project"
)

// Synchronous reports whether events of this kind are delivered before the
// firing call returns.
func (k Kind) Synchronous() bool {
	return k == KindDataChanging || k == KindUnloadProject
}

// Event is delivered to subscribers.
type Event struct {
	Kind       Kind
	DocumentID string

	// View is set for KindViewReleased
	View View
}
