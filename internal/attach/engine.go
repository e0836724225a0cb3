package attach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/labeler"
	"github.com/jakoblorz/go-projectdoc/internal/logging"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/providers"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// ItemProvenance is the provenance under which content items are
// registered with the working dataset.
const ItemProvenance = "item"

// DefaultMaterializeTimeout bounds a single provider call.
const DefaultMaterializeTimeout = 30 * time.Second

// Engine attaches and detaches items and bindings on behalf of a Host.
// It must only be used from the host's owning goroutine.
type Engine struct {
	host       Host
	labeler    labeler.Labeler
	providers  *providers.Registry
	extensions []Extension
	logger     *zap.Logger
	timeout    time.Duration

	// registered holds items currently known to the dataset
	registered map[*models.ContentItem]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// WithExtensions registers attach/detach extensions, called in order.
func WithExtensions(exts ...Extension) Option {
	return func(e *Engine) { e.extensions = append(e.extensions, exts...) }
}

// WithMaterializeTimeout overrides DefaultMaterializeTimeout. Non-positive
// durations are ignored.
func WithMaterializeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates an engine for host. A nil labeler falls back to the
// payload id; a nil provider registry makes every binding attach fail.
func NewEngine(host Host, lbl labeler.Labeler, registry *providers.Registry, opts ...Option) *Engine {
	if lbl == nil {
		lbl = labeler.Func(func(p *models.Payload) string {
			if p == nil {
				return ""
			}
			return p.ID
		})
	}
	e := &Engine{
		host:       host,
		labeler:    lbl,
		providers:  registry,
		logger:     zap.NewNop(),
		timeout:    DefaultMaterializeTimeout,
		registered: make(map[*models.ContentItem]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset forgets every registration. Called after the dataset is gone.
func (e *Engine) Reset() {
	e.registered = make(map[*models.ContentItem]struct{})
}

// IsRegistered reports whether item is currently registered.
func (e *Engine) IsRegistered(item *models.ContentItem) bool {
	_, ok := e.registered[item]
	return ok
}

func (e *Engine) mustDataset() dataset.WorkingDataset {
	ds := e.host.Dataset()
	if ds == nil {
		panic(ErrNoDataset)
	}
	return ds
}

// AttachItems labels, registers and inserts items into the folder titled
// folderTitle, creating it when missing. An empty title inserts at the
// root. Already registered items are skipped.
func (e *Engine) AttachItems(folderTitle string, items []*models.ContentItem) error {
	if !e.host.Loaded() {
		return ErrNotLoaded
	}
	ds := e.mustDataset()
	tree := e.host.Tree()

	used := tree.Labels()
	fresh := make([]*models.ContentItem, 0, len(items))
	seen := make(map[*models.ContentItem]bool, len(items))
	for _, item := range items {
		if item == nil || seen[item] || e.IsRegistered(item) {
			continue
		}
		seen[item] = true
		if strings.TrimSpace(item.Label) == "" {
			item.Label = e.labeler.LabelFor(item.Payload)
		}
		if item.Label == "" {
			item.Label = "item"
		}
		item.Label = uniqueLabel(item.Label, used)
		used[item.Label]++
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return nil
	}

	for i, item := range fresh {
		if err := ds.Register(item.ID, ItemProvenance, 0); err != nil {
			// roll back this batch so nothing is left half applied
			for _, done := range fresh[:i] {
				_ = ds.Unregister(done.ID)
				done.Enabled = false
				delete(e.registered, done)
			}
			return fmt.Errorf("failed to register item %s: %w", item.ID, err)
		}
		item.Enabled = true
		e.registered[item] = struct{}{}
	}

	info := e.host.Info()
	for _, item := range fresh {
		e.notify("attached", item, func(ext Extension) error {
			return ext.OnItemAttached(item, info)
		})
	}

	target := tree
	if folderTitle != "" {
		target = tree.EnsureFolder(folderTitle, e.host.Now())
	}
	target.Items = append(target.Items, fresh...)

	e.host.MarkDirty()
	e.host.Fire(views.KindProjectStateChanged)
	return nil
}

// AttachExisting makes the labels in the tree unique, then registers every
// enabled item already in it. It returns how many items were registered.
func (e *Engine) AttachExisting() int {
	if !e.host.Loaded() {
		return 0
	}
	ds := e.mustDataset()
	info := e.host.Info()

	if e.relabelDuplicates() {
		e.host.MarkDirty()
	}

	count := 0
	for _, item := range e.host.Tree().AllItems() {
		if !item.Enabled || e.IsRegistered(item) {
			continue
		}
		if err := ds.Register(item.ID, ItemProvenance, 0); err != nil {
			e.logger.Warn("failed to register item",
				zap.String("item", item.ID), zap.Error(err))
			item.Enabled = false
			continue
		}
		e.registered[item] = struct{}{}
		e.notify("attached", item, func(ext Extension) error {
			return ext.OnItemAttached(item, info)
		})
		count++
	}
	return count
}

// DetachItems detaches every enabled item in items. Extension callbacks
// and closing of dependent views happen before it returns; the dataset
// unregister pass runs after the current document operation. It returns
// the number of items detached.
func (e *Engine) DetachItems(items []*models.ContentItem) int {
	var targets []*models.ContentItem
	for _, item := range items {
		if item != nil && item.Enabled {
			targets = append(targets, item)
		}
	}
	if len(targets) == 0 {
		return 0
	}

	e.host.Fire(views.KindDataChanging)

	info := e.host.Info()
	for _, item := range targets {
		e.notify("detached", item, func(ext Extension) error {
			return ext.OnItemDetached(item, info)
		})
		e.closeDependentViews(item)
	}

	e.host.Defer(func() {
		ds := e.host.Dataset()
		for _, item := range targets {
			e.unregister(ds, item)
		}
		e.host.Fire(views.KindData)
	})
	return len(targets)
}

// DetachAll detaches every binding and every item right away. Used by
// unload, where nothing may be deferred past the dataset's lifetime.
func (e *Engine) DetachAll() {
	ds := e.host.Dataset()
	info := e.host.Info()

	for _, item := range e.host.Tree().AllItems() {
		if !item.Enabled {
			continue
		}
		e.notify("detached", item, func(ext Extension) error {
			return ext.OnItemDetached(item, info)
		})
		e.unregister(ds, item)
	}
	for _, b := range e.host.Bindings() {
		if b.Enabled {
			e.DetachBinding(b)
		}
	}
	e.Reset()
}

// RemoveItems detaches items and removes them from the tree. It reports
// whether anything was removed.
func (e *Engine) RemoveItems(items []*models.ContentItem) bool {
	tree := e.host.Tree()
	if tree == nil {
		return false
	}
	e.DetachItems(items)

	removed := false
	for _, item := range items {
		if item != nil && tree.Remove(item) {
			removed = true
		}
	}
	if removed {
		e.host.MarkDirty()
		e.host.Fire(views.KindProjectStateChanged)
	}
	return removed
}

// RestoreItems puts previously removed items back into folder. Labels are
// made unique again and items still marked enabled are re-registered.
func (e *Engine) RestoreItems(folder *models.Folder, items []*models.ContentItem) {
	if folder == nil || len(items) == 0 {
		return
	}
	ds := e.mustDataset()
	info := e.host.Info()
	used := e.host.Tree().Labels()

	for _, item := range items {
		item.Label = uniqueLabel(item.Label, used)
		used[item.Label]++
		folder.Items = append(folder.Items, item)

		if !item.Enabled || e.IsRegistered(item) {
			continue
		}
		if err := ds.Register(item.ID, ItemProvenance, 0); err != nil {
			e.logger.Warn("failed to register restored item",
				zap.String("item", item.ID), zap.Error(err))
			item.Enabled = false
			continue
		}
		e.registered[item] = struct{}{}
		e.notify("attached", item, func(ext Extension) error {
			return ext.OnItemAttached(item, info)
		})
	}

	e.host.MarkDirty()
	e.host.Fire(views.KindProjectStateChanged)
}

func (e *Engine) unregister(ds dataset.WorkingDataset, item *models.ContentItem) {
	if _, ok := e.registered[item]; ok && ds != nil {
		if err := ds.Unregister(item.ID); err != nil && !errors.Is(err, dataset.ErrNotRegistered) {
			e.logger.Warn("failed to unregister item",
				zap.String("item", item.ID), zap.Error(err))
		}
	}
	delete(e.registered, item)
	item.Enabled = false
}

// closeDependentViews destroys and detaches every view displaying the
// item's payload or anything reachable from it.
func (e *Engine) closeDependentViews(item *models.ContentItem) {
	registry := e.host.Views()
	if registry == nil || item.Payload == nil {
		return
	}
	for _, v := range registry.Views() {
		d, ok := v.(views.Displayer)
		if !ok {
			continue
		}
		if !item.Payload.Reachable(d.DisplayedPayload()) {
			continue
		}
		e.logger.Debug("closing dependent view",
			zap.String("item", item.ID), zap.String("view", v.ClientLabel()))
		v.DestroyView()
		registry.Detach(v)
	}
}

func (e *Engine) notify(what string, item *models.ContentItem, call func(Extension) error) {
	for i, ext := range e.extensions {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("extension panicked",
						zap.String("event", what),
						zap.Int("extension", i),
						zap.String("item", item.ID),
						zap.Any("panic", r))
				}
			}()
			if err := call(ext); err != nil {
				e.logger.Warn("extension failed",
					zap.String("event", what),
					zap.Int("extension", i),
					zap.String("item", item.ID),
					zap.Error(err))
			}
		}()
	}
}

// relabelDuplicates suffixes every repeated label in the tree after its
// first occurrence in walk order. It reports whether any label changed.
func (e *Engine) relabelDuplicates() bool {
	items := e.host.Tree().AllItems()
	used := make(map[string]int, len(items))
	for _, item := range items {
		used[item.Label]++
	}

	changed := false
	kept := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Label == "" || used[item.Label] < 2 || !kept[item.Label] {
			kept[item.Label] = true
			continue
		}
		item.Label = uniqueLabel(item.Label, used)
		used[item.Label]++
		kept[item.Label] = true
		changed = true
	}
	return changed
}

// uniqueLabel appends -2, -3, ... to label until it is unused.
func uniqueLabel(label string, used map[string]int) string {
	if used[label] == 0 {
		return label
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", label, n)
		if used[candidate] == 0 {
			return candidate
		}
	}
}

// sortedByPriority returns a copy of bindings, lower priority first.
func sortedByPriority(bindings []*models.DataSourceBinding) []*models.DataSourceBinding {
	out := append([]*models.DataSourceBinding(nil), bindings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

func (e *Engine) materializeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}
