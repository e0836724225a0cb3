package attach

import (
	"errors"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// AttachBinding materializes b through its provider and registers the
// generated loader name with the dataset. On any failure b is disabled
// and false is returned. Attaching an attached binding is safe.
func (e *Engine) AttachBinding(b *models.DataSourceBinding) bool {
	if b == nil || !e.host.Loaded() {
		return false
	}
	ds := e.mustDataset()
	log := e.logger.With(zap.String("loader_type", b.LoaderType), zap.String("label", b.Label))

	p, err := e.providers.Lookup(b.LoaderType)
	if err != nil {
		log.Warn("binding attach failed", zap.Error(err))
		b.Enabled = false
		return false
	}

	ctx, cancel := e.materializeContext()
	defer cancel()

	name, err := p.Materialize(ctx, b.Config)
	if err != nil {
		log.Warn("binding attach failed", zap.Error(err))
		b.Enabled = false
		return false
	}
	b.SetGeneratedName(name)

	ds.ResetCachedLookups()
	if err := ds.Register(name, b.LoaderType, b.Priority); err != nil {
		log.Warn("binding registration failed", zap.String("loader_name", name), zap.Error(err))
		b.Enabled = false
		return false
	}

	b.Enabled = true
	log.Debug("binding attached", zap.String("loader_name", name))
	return true
}

// DetachBinding unregisters b from the dataset and disables it. The
// binding stays in the document's binding list.
func (e *Engine) DetachBinding(b *models.DataSourceBinding) bool {
	if b == nil {
		return false
	}
	name := e.logicalName(b)
	if name == "" {
		e.logger.Warn("cannot resolve loader name for binding",
			zap.String("loader_type", b.LoaderType), zap.String("label", b.Label))
		return false
	}

	if holder := e.enabledHolder(name, b); holder != nil {
		// the registration stays for the other binding
		e.logger.Debug("loader name still held by another binding",
			zap.String("loader_name", name), zap.String("holder", holder.Label))
		b.Enabled = false
		return true
	}

	if ds := e.host.Dataset(); ds != nil {
		if err := ds.Unregister(name); err != nil && !errors.Is(err, dataset.ErrNotRegistered) {
			e.logger.Warn("binding detach failed",
				zap.String("loader_name", name), zap.Error(err))
			return false
		}
	}
	b.Enabled = false
	return true
}

// RemoveBinding detaches b if needed and drops it from the binding list.
func (e *Engine) RemoveBinding(b *models.DataSourceBinding) bool {
	bindings := e.host.Bindings()
	pos := -1
	for i, existing := range bindings {
		if existing == b {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	if b.Enabled && !e.DetachBinding(b) {
		return false
	}

	remaining := append(append([]*models.DataSourceBinding(nil), bindings[:pos]...), bindings[pos+1:]...)
	e.host.SetBindings(remaining)
	e.host.MarkDirty()
	e.host.Fire(views.KindProjectStateChanged)
	return true
}

// AddBindings appends bindings to the document and attaches them. A new
// binding is skipped when an enabled binding of the same loader type
// already resolves to the same logical name, or when a binding earlier in
// the same batch does. It returns the bindings that were added.
func (e *Engine) AddBindings(bindings []*models.DataSourceBinding) []*models.DataSourceBinding {
	current := append([]*models.DataSourceBinding(nil), e.host.Bindings()...)
	labels := make(map[string]int, len(current))
	for _, b := range current {
		labels[b.Label]++
	}

	var added []*models.DataSourceBinding
	for _, b := range bindings {
		if b == nil {
			continue
		}
		dup := e.duplicateOf(b, current)
		if dup == nil {
			dup = e.sameSource(b, added)
		}
		if dup != nil {
			e.logger.Info("skipping duplicate binding",
				zap.String("loader_type", b.LoaderType),
				zap.String("label", b.Label),
				zap.String("existing", dup.Label))
			continue
		}
		if b.Label == "" {
			b.Label = b.LoaderType
		}
		b.Label = uniqueLabel(b.Label, labels)
		labels[b.Label]++

		current = append(current, b)
		added = append(added, b)
	}
	if len(added) == 0 {
		return nil
	}

	e.host.SetBindings(current)
	for _, b := range sortedByPriority(added) {
		e.AttachBinding(b)
	}
	e.host.MarkDirty()
	return added
}

// AttachBindings attaches every binding of the document in priority
// order and returns how many succeeded.
func (e *Engine) AttachBindings() int {
	count := 0
	for _, b := range sortedByPriority(e.host.Bindings()) {
		if e.AttachBinding(b) {
			count++
		}
	}
	return count
}

func (e *Engine) duplicateOf(b *models.DataSourceBinding, existing []*models.DataSourceBinding) *models.DataSourceBinding {
	name := e.logicalName(b)
	if name == "" {
		return nil
	}
	for _, ex := range existing {
		if ex.Enabled && ex.LoaderType == b.LoaderType && e.logicalName(ex) == name {
			return ex
		}
	}
	return nil
}

// sameSource returns the binding in batch with b's loader type and logical
// name, whatever its enabled state.
func (e *Engine) sameSource(b *models.DataSourceBinding, batch []*models.DataSourceBinding) *models.DataSourceBinding {
	name := e.logicalName(b)
	if name == "" {
		return nil
	}
	for _, other := range batch {
		if other.LoaderType == b.LoaderType && e.logicalName(other) == name {
			return other
		}
	}
	return nil
}

// enabledHolder returns an enabled binding other than b registered under
// name.
func (e *Engine) enabledHolder(name string, b *models.DataSourceBinding) *models.DataSourceBinding {
	for _, other := range e.host.Bindings() {
		if other != b && other.Enabled && e.logicalName(other) == name {
			return other
		}
	}
	return nil
}

// logicalName returns the recorded generated name, or recomputes it via
// the provider.
func (e *Engine) logicalName(b *models.DataSourceBinding) string {
	if name := b.GeneratedName(); name != "" {
		return name
	}
	p, err := e.providers.Lookup(b.LoaderType)
	if err != nil {
		return ""
	}
	return p.LogicalNameFor(b.Config)
}
