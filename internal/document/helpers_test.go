package document

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/jakoblorz/go-projectdoc/internal/dataset"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/logging"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/providers"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

const projectPath = "/work/atlas.projdoc"

func newTestDocument(t *testing.T, fs *filesystem.MockFileSystem, tweak ...func(*Options)) *Document {
	t.Helper()

	cfg := config.Default()
	cfg.Jobs.Workers = 2
	logger, _ := logging.NewTestLogger()

	reg := providers.NewRegistry()
	reg.Register("stub", &stubProvider{})

	opts := Options{
		FS:        fs,
		Config:    cfg,
		Providers: reg,
		Logger:    logger,
		Now:       func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	}
	for _, fn := range tweak {
		fn(&opts)
	}

	doc, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func withDataset(ds dataset.WorkingDataset) func(*Options) {
	return func(o *Options) {
		o.Dataset = func() (dataset.WorkingDataset, error) { return ds, nil }
	}
}

// blockingFactory holds the load job inside dataset creation until
// released. Release runs automatically before the document is closed.
type blockingFactory struct {
	ds      *dataset.Memory
	entered chan struct{}
	release chan struct{}
	enter   sync.Once
	unblock sync.Once
}

func newBlockingFactory() *blockingFactory {
	return &blockingFactory{
		ds:      dataset.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// arm registers the release cleanup; call it after the document exists
// so it runs before the document's Close.
func (f *blockingFactory) arm(t *testing.T) {
	t.Cleanup(f.Release)
}

func (f *blockingFactory) Factory() (dataset.WorkingDataset, error) {
	f.enter.Do(func() { close(f.entered) })
	<-f.release
	return f.ds, nil
}

func (f *blockingFactory) Release() {
	f.unblock.Do(func() { close(f.release) })
}

func (f *blockingFactory) WaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-f.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("load job never reached dataset creation")
	}
}

type stubProvider struct{}

func (p *stubProvider) Materialize(ctx context.Context, config map[string]string) (string, error) {
	return p.LogicalNameFor(config), nil
}

func (p *stubProvider) LogicalNameFor(config map[string]string) string {
	return "stub:" + config["name"]
}

type fakeView struct {
	label string

	mu        sync.Mutex
	destroyed int
	async     bool
	events    []views.Kind
}

func (v *fakeView) ClientLabel() string { return v.label }

func (v *fakeView) DestroyView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.destroyed++
}

func (v *fakeView) SetAsyncDestroy(async bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.async = async
}

func (v *fakeView) HandleEvent(ev views.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, ev.Kind)
}

func (v *fakeView) snapshot() (destroyed int, async bool, events []views.Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed, v.async, append([]views.Kind(nil), v.events...)
}

func sampleProject() *codec.Project {
	tree := models.NewFolder("", time.Time{})
	inputs := tree.EnsureFolder("Inputs", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	inputs.Items = []*models.ContentItem{
		{ID: "item_genome0001", Label: "genome", Enabled: true, Payload: models.NewPayload("genomes/hg19", "v1.0.0", "genome")},
		{ID: "item_reads00001", Label: "reads", Payload: models.NewPayload("reads/sample1", "", "reads")},
	}
	binding := models.NewDataSourceBinding("stub", "upstream", map[string]string{"name": "atlas"}, 0)
	binding.Enabled = true
	return &codec.Project{Title: "Atlas", Tree: tree, Bindings: []*models.DataSourceBinding{binding}}
}

func writeProject(t *testing.T, fs *filesystem.MockFileSystem, path string, p *codec.Project) []byte {
	t.Helper()
	data, err := codec.Encode(p)
	require.NoError(t, err)
	fs.AddFile(path, data)
	return data
}

func loadAndWait(t *testing.T, doc *Document, path string) {
	t.Helper()
	started, err := doc.Load(path)
	require.NoError(t, err)
	require.True(t, started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, doc.AwaitLoad(ctx))
}

func awaitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
