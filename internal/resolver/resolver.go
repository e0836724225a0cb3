// Package resolver rewrites legacy unversioned payload identifiers into
// canonical versioned ones, in batches against the working dataset.
package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/logging"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// DefaultBatchSize caps ids per ResolveBatch call.
const DefaultBatchSize = 2000

// Stats summarizes one Resolve run.
type Stats struct {
	Legacy     int
	Resolved   int
	Unresolved int
	Batches    int
}

// Resolver walks a tree and resolves legacy identifiers.
type Resolver struct {
	BatchSize int
	Logger    *zap.Logger
}

// New creates a resolver with the given batch size. Non-positive sizes
// fall back to DefaultBatchSize.
func New(batchSize int, logger *zap.Logger) *Resolver {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Resolver{BatchSize: batchSize, Logger: logging.OrNop(logger)}
}

// Resolve rewrites every legacy payload reachable from the tree's items.
// The walk streams: at most BatchSize pending ids are buffered, and a
// ResolveBatch call is made whenever the buffer fills. The token is
// checked after each batch; on cancellation the payloads resolved so far
// keep their new identifiers and jobs.ErrCancelled is returned.
// Identifiers the dataset cannot resolve are left unchanged.
func (r *Resolver) Resolve(tok *jobs.Token, tree *models.Folder, ds dataset.WorkingDataset) (Stats, error) {
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	b := &batcher{
		tok:     tok,
		ds:      ds,
		size:    size,
		log:     logging.OrNop(r.Logger),
		done:    make(map[string]string),
		targets: make(map[string][]*models.Payload, size),
	}

	visited := make(map[*models.Payload]bool)
	var visit func(p *models.Payload) bool
	visit = func(p *models.Payload) bool {
		if p == nil || visited[p] {
			return true
		}
		visited[p] = true
		if p.IsLegacy() && p.ID != "" && !b.add(p) {
			return false
		}
		for _, ref := range p.Refs {
			if !visit(ref) {
				return false
			}
		}
		return true
	}

	completed := tree.Walk(func(_ *models.Folder, item *models.ContentItem) bool {
		return visit(item.Payload)
	})
	if completed {
		b.flush()
	}
	return b.stats, b.err
}

// batcher buffers pending legacy ids and remembers the outcome of ids
// already looked up, so a later payload with the same id costs no call.
type batcher struct {
	tok  *jobs.Token
	ds   dataset.WorkingDataset
	size int
	log  *zap.Logger

	stats Stats
	err   error

	// done maps looked-up ids to their canonical form, "" when unresolved
	done    map[string]string
	pending []string
	targets map[string][]*models.Payload
}

// add queues p and reports whether the walk may continue.
func (b *batcher) add(p *models.Payload) bool {
	if canonical, ok := b.done[p.ID]; ok {
		if canonical != "" {
			p.ID, p.Version, _ = models.SplitCanonical(canonical)
		}
		return true
	}

	if _, queued := b.targets[p.ID]; !queued {
		b.pending = append(b.pending, p.ID)
		b.stats.Legacy++
	}
	b.targets[p.ID] = append(b.targets[p.ID], p)

	if len(b.pending) < b.size {
		return true
	}
	return b.flush()
}

// flush resolves the pending ids and reports whether the walk may
// continue.
func (b *batcher) flush() bool {
	if len(b.pending) == 0 {
		return true
	}

	resolved, err := b.ds.ResolveBatch(b.tok.Context(), b.pending)
	if err != nil {
		if b.tok.Cancelled() {
			b.err = jobs.ErrCancelled
		} else {
			b.err = fmt.Errorf("failed to resolve identifiers: %w", err)
		}
		return false
	}
	b.stats.Batches++

	for _, id := range b.pending {
		canonical := resolved[id]
		newID, version, ok := models.SplitCanonical(canonical)
		if !ok {
			b.done[id] = ""
			b.stats.Unresolved++
			continue
		}
		for _, p := range b.targets[id] {
			p.ID = newID
			p.Version = version
		}
		b.done[id] = newID + "@" + version
		b.stats.Resolved++
	}

	b.log.Debug("resolved identifier batch",
		zap.Int("batch", b.stats.Batches),
		zap.Int("size", len(b.pending)),
		zap.Int("resolved_total", b.stats.Resolved))

	b.pending = make([]string, 0, b.size)
	clear(b.targets)

	if b.tok.Cancelled() {
		b.err = jobs.ErrCancelled
		return false
	}
	return true
}
