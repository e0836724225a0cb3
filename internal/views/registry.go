package views

// Registry is the bookkeeping of attached views. It assigns per-label
// instance indices and fans lifecycle events out to subscribers.
//
// Registry is not safe for concurrent use; it lives on the owning
// document's execution context. Event delivery itself is handled by the
// Dispatcher.
type Registry struct {
	documentID string
	views      []View
	index      map[View]int
	observers  []EventSubscriber
	dispatcher *Dispatcher
}

// NewRegistry creates an empty registry for the document with documentID.
func NewRegistry(documentID string) *Registry {
	return &Registry{
		documentID: documentID,
		index:      make(map[View]int),
		dispatcher: NewDispatcher(),
	}
}

// Attach registers v and returns its instance index: one more than the
// highest index among currently attached views with the same client
// label, or 0 if there are none. Attaching an attached view returns its
// existing index.
func (r *Registry) Attach(v View) int {
	if idx, ok := r.index[v]; ok {
		return idx
	}

	idx := 0
	label := v.ClientLabel()
	for _, existing := range r.views {
		if existing.ClientLabel() != label {
			continue
		}
		if candidate := r.index[existing] + 1; candidate > idx {
			idx = candidate
		}
	}

	r.views = append(r.views, v)
	r.index[v] = idx
	r.Fire(KindViewsChanged)

	return idx
}

// Detach removes v. It fires ViewsChanged and then ViewReleased for v.
func (r *Registry) Detach(v View) bool {
	pos := -1
	for i, existing := range r.views {
		if existing == v {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	r.views = append(r.views[:pos], r.views[pos+1:]...)
	delete(r.index, v)
	r.Fire(KindViewsChanged)

	targets := r.subscribers()
	if sub, ok := v.(EventSubscriber); ok {
		targets = append(targets, sub)
	}
	r.dispatcher.Post(Event{Kind: KindViewReleased, DocumentID: r.documentID, View: v}, targets)

	return true
}

// Index returns the instance index of an attached view.
func (r *Registry) Index(v View) (int, bool) {
	idx, ok := r.index[v]
	return idx, ok
}

// Views returns the attached views in attach order.
func (r *Registry) Views() []View {
	return append([]View(nil), r.views...)
}

// Len returns the number of attached views.
func (r *Registry) Len() int {
	return len(r.views)
}

// Subscribe adds an observer that is not a view.
func (r *Registry) Subscribe(sub EventSubscriber) {
	r.observers = append(r.observers, sub)
}

// Fire emits an event of kind, synchronously or deferred depending on
// the kind.
func (r *Registry) Fire(kind Kind) {
	ev := Event{Kind: kind, DocumentID: r.documentID}
	targets := r.subscribers()

	if kind.Synchronous() {
		r.dispatcher.Send(ev, targets)
		return
	}
	r.dispatcher.Post(ev, targets)
}

// Flush waits until every deferred event fired so far has been delivered.
func (r *Registry) Flush() {
	r.dispatcher.Flush()
}

// Close flushes pending events and stops delivery.
func (r *Registry) Close() {
	r.dispatcher.Close()
}

// subscribers snapshots the current targets so later attach/detach calls
// do not change who receives an already fired event.
func (r *Registry) subscribers() []EventSubscriber {
	targets := make([]EventSubscriber, 0, len(r.views)+len(r.observers))
	for _, v := range r.views {
		if sub, ok := v.(EventSubscriber); ok {
			targets = append(targets, sub)
		}
	}
	return append(targets, r.observers...)
}
