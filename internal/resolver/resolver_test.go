package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

func legacyTree(n int) (*models.Folder, []*models.Payload) {
	tree := models.NewFolder("", time.Time{})
	folder := tree.EnsureFolder("Data", time.Time{})
	payloads := make([]*models.Payload, 0, n)
	for i := 0; i < n; i++ {
		p := models.NewPayload(fmt.Sprintf("track/%04d", i), "", "track")
		payloads = append(payloads, p)
		folder.Items = append(folder.Items, models.NewContentItem("", p))
	}
	return tree, payloads
}

func catalog(n int) *dataset.Memory {
	ds := dataset.NewMemory()
	for i := 0; i < n; i++ {
		ds.Publish(fmt.Sprintf("track/%04d", i), fmt.Sprintf("track/%04d@v1.0.0", i))
	}
	return ds
}

// cancellingDataset cancels the token once the given number of batches
// has been served.
type cancellingDataset struct {
	*dataset.Memory
	after  int
	calls  int
	cancel context.CancelFunc
}

func (c *cancellingDataset) ResolveBatch(ctx context.Context, ids []string) (map[string]string, error) {
	out, err := c.Memory.ResolveBatch(ctx, ids)
	c.calls++
	if c.calls == c.after {
		c.cancel()
	}
	return out, err
}

func TestResolve_BatchesOf2000(t *testing.T) {
	tree, payloads := legacyTree(2001)
	ds := catalog(2001)

	stats, err := New(0, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.BatchCalls())
	assert.Equal(t, Stats{Legacy: 2001, Resolved: 2001, Batches: 2}, stats)
	for _, p := range payloads {
		assert.Equal(t, "v1.0.0", p.Version)
		assert.False(t, p.IsLegacy())
	}
}

func TestResolve_ExactlyOneBatch(t *testing.T) {
	tree, _ := legacyTree(2000)
	ds := catalog(2000)

	_, err := New(DefaultBatchSize, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.BatchCalls())
}

func TestResolve_NoLegacyIsNoop(t *testing.T) {
	tree := models.NewFolder("", time.Time{})
	tree.Items = []*models.ContentItem{
		models.NewContentItem("a", models.NewPayload("a", "v1.0.0", "track")),
	}
	ds := dataset.NewMemory()

	stats, err := New(10, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)
	assert.Zero(t, ds.BatchCalls())
	assert.Equal(t, Stats{}, stats)
}

func TestResolve_UnresolvedLeftUnchanged(t *testing.T) {
	tree := models.NewFolder("", time.Time{})
	known := models.NewPayload("known", "", "track")
	unknown := models.NewPayload("unknown", "", "track")
	invalid := models.NewPayload("invalid", "", "track")
	tree.Items = []*models.ContentItem{
		models.NewContentItem("", known),
		models.NewContentItem("", unknown),
		models.NewContentItem("", invalid),
	}

	ds := dataset.NewMemory()
	ds.Publish("known", "known-renamed@v2.1")
	ds.Publish("invalid", "invalid@latest")

	stats, err := New(10, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)

	assert.Equal(t, "known-renamed", known.ID)
	assert.Equal(t, "v2.1.0", known.Version)
	assert.Equal(t, "unknown", unknown.ID)
	assert.True(t, unknown.IsLegacy())
	assert.Equal(t, "invalid", invalid.ID)
	assert.True(t, invalid.IsLegacy())
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.Unresolved)
}

func TestResolve_SharedIdsAndNestedRefs(t *testing.T) {
	tree := models.NewFolder("", time.Time{})
	shared := models.NewPayload("shared", "", "track")
	parent := models.NewPayload("parent", "v1.0.0", "bundle")
	parent.Refs = []*models.Payload{models.NewPayload("shared", "", "track"), parent}
	tree.Items = []*models.ContentItem{
		models.NewContentItem("", shared),
		models.NewContentItem("", parent),
	}

	ds := dataset.NewMemory()
	ds.Publish("shared", "shared@v1.2.3")

	stats, err := New(10, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Legacy)
	assert.Equal(t, "v1.2.3", shared.Version)
	assert.Equal(t, "v1.2.3", parent.Refs[0].Version)
}

func TestResolve_CancelKeepsPartialProgress(t *testing.T) {
	tree, payloads := legacyTree(25)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ds := &cancellingDataset{Memory: catalog(25), after: 1, cancel: cancel}

	stats, err := New(10, nil).Resolve(jobs.NewToken(ctx), tree, ds)
	require.ErrorIs(t, err, jobs.ErrCancelled)

	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 10, stats.Resolved)
	for i, p := range payloads {
		if i < 10 {
			assert.False(t, p.IsLegacy(), "payload %d", i)
		} else {
			assert.True(t, p.IsLegacy(), "payload %d", i)
		}
	}
}

func TestResolve_TransportError(t *testing.T) {
	tree, payloads := legacyTree(3)
	ds := catalog(3)
	ds.ResolveError = errors.New("connection reset")

	_, err := New(10, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrCancelled)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, payloads[0].IsLegacy())
}

// recordingDataset records the size of every batch and how many payloads
// of the tree were still legacy when the batch was requested.
type recordingDataset struct {
	*dataset.Memory
	payloads    []*models.Payload
	sizes       []int
	legacyAtReq []int
}

func (r *recordingDataset) ResolveBatch(ctx context.Context, ids []string) (map[string]string, error) {
	r.sizes = append(r.sizes, len(ids))
	legacy := 0
	for _, p := range r.payloads {
		if p.IsLegacy() {
			legacy++
		}
	}
	r.legacyAtReq = append(r.legacyAtReq, legacy)
	return r.Memory.ResolveBatch(ctx, ids)
}

func TestResolve_StreamsBatchesDuringWalk(t *testing.T) {
	tree, payloads := legacyTree(25)
	ds := &recordingDataset{Memory: catalog(25), payloads: payloads}

	stats, err := New(10, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, ds.sizes)
	// each batch is issued before later payloads are looked at
	assert.Equal(t, []int{25, 15, 5}, ds.legacyAtReq)
	assert.Equal(t, Stats{Legacy: 25, Resolved: 25, Batches: 3}, stats)
}

func TestResolve_RepeatedIdAfterFlushReusesResult(t *testing.T) {
	tree := models.NewFolder("", time.Time{})
	first := models.NewPayload("a", "", "track")
	other := models.NewPayload("b", "", "track")
	again := models.NewPayload("a", "", "track")
	missing := models.NewPayload("c", "", "track")
	missingAgain := models.NewPayload("c", "", "track")
	for _, p := range []*models.Payload{first, other, missing, again, missingAgain} {
		tree.Items = append(tree.Items, models.NewContentItem("", p))
	}

	ds := dataset.NewMemory()
	ds.Publish("a", "a@v1.0.0")
	ds.Publish("b", "b@v2.0.0")

	stats, err := New(2, nil).Resolve(jobs.NewToken(context.Background()), tree, ds)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.BatchCalls())
	assert.Equal(t, Stats{Legacy: 3, Resolved: 2, Unresolved: 1, Batches: 2}, stats)
	assert.Equal(t, "a@v1.0.0", again.Key())
	assert.True(t, missingAgain.IsLegacy())
}
