package codec

import (
	"testing"
	"time"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleProject() *Project {
	genome := models.NewPayload("genomes/hg19", "v1.0.0", "genome")
	genome.Attributes = map[string]string{"species": "human"}
	annotation := models.NewPayload("tracks/genes", "", "track")
	annotation.Refs = []*models.Payload{genome}

	tree := models.NewFolder("", time.Time{})
	tree.Items = []*models.ContentItem{
		{ID: "item_root000001", Label: "hg19", Enabled: true, Payload: genome, Extra: map[string]string{}},
	}
	results := tree.EnsureFolder("Results", created)
	results.Items = []*models.ContentItem{
		{ID: "item_res0000001", Label: "genes", Payload: annotation, Extra: map[string]string{"color": "red"}},
	}

	binding := models.NewDataSourceBinding("github", "upstream", map[string]string{
		"owner": "acme",
		"repo":  "atlas",
	}, 2)
	binding.Enabled = true
	binding.SetGeneratedName("github:acme/atlas")

	return &Project{Title: "Atlas", Tree: tree, Bindings: []*models.DataSourceBinding{binding}}
}

func TestEncode_Snapshot(t *testing.T) {
	data, err := Encode(sampleProject())
	require.NoError(t, err)
	snaps.MatchSnapshot(t, string(data))
}

func TestDecode_RestoresTree(t *testing.T) {
	data, err := Encode(sampleProject())
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "Atlas", p.Title)
	require.Len(t, p.Bindings, 1)
	assert.Equal(t, "github:acme/atlas", p.Bindings[0].GeneratedName())
	assert.True(t, p.Bindings[0].Enabled)
	assert.Equal(t, 2, p.Bindings[0].Priority)

	require.Len(t, p.Tree.Items, 1)
	root := p.Tree.Items[0]
	assert.Equal(t, "item_root000001", root.ID)
	assert.True(t, root.Enabled)
	assert.Equal(t, "human", root.Payload.Attributes["species"])

	results := p.Tree.FindFolder("Results")
	require.NotNil(t, results)
	assert.True(t, created.Equal(results.CreatedAt))
	require.Len(t, results.Items, 1)
	genes := results.Items[0]
	assert.Equal(t, "red", genes.Extra["color"])
	assert.True(t, genes.Payload.IsLegacy())

	// the shared genome payload is the same object after decoding
	require.Len(t, genes.Payload.Refs, 1)
	assert.Same(t, root.Payload, genes.Payload.Refs[0])
}

func TestEncode_CyclicPayloads(t *testing.T) {
	a := models.NewPayload("a", "v1.0.0", "node")
	b := models.NewPayload("b", "v1.0.0", "node")
	a.Refs = []*models.Payload{b}
	b.Refs = []*models.Payload{a}

	tree := models.NewFolder("", time.Time{})
	tree.Items = []*models.ContentItem{{ID: "item_cycle00001", Label: "a", Payload: a}}

	data, err := Encode(&Project{Title: "cycle", Tree: tree})
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)

	got := p.Tree.Items[0].Payload
	require.Len(t, got.Refs, 1)
	require.Len(t, got.Refs[0].Refs, 1)
	assert.Same(t, got, got.Refs[0].Refs[0])
}

func TestDecode_DanglingReference(t *testing.T) {
	data := []byte(`---
format: projdoc/v1
title: dangling
---
items:
  - id: item_x
    label: x
    payload:
      ref: genomes/mm10@v2.0.0
`)
	p, err := Decode(data)
	require.NoError(t, err)
	payload := p.Tree.Items[0].Payload
	assert.Equal(t, "genomes/mm10", payload.ID)
	assert.Equal(t, "v2.0.0", payload.Version)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "no header", data: "items: []\n", want: ErrMissingHeader},
		{name: "unknown format", data: "---\nformat: projdoc/v9\n---\n", want: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("truncated body", func(t *testing.T) {
		err := Verify([]byte("---\nformat: projdoc/v1\ntitle: x\n---\nitems:\n  - id: [unclosed\n"))
		require.Error(t, err)
	})

	t.Run("item without id", func(t *testing.T) {
		err := Verify([]byte("---\nformat: projdoc/v1\n---\nitems:\n  - label: x\n"))
		require.Error(t, err)
	})
}

func TestRead(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	data, err := Encode(sampleProject())
	require.NoError(t, err)
	fs.AddFile("/work/atlas.projdoc", data)

	p, err := Read(fs, "/work/atlas.projdoc")
	require.NoError(t, err)
	assert.Equal(t, "Atlas", p.Title)

	_, err = Read(fs, "/work/missing.projdoc")
	require.Error(t, err)
}
