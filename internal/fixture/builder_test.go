package fixture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
)

func TestProjectBuilder(t *testing.T) {
	fs, path := NewProjectBuilder("/work").
		Title("Atlas").
		AddItem("", "genome", "genomes/hg19", "v1.0.0", true).
		AddItem("Results", "genes", "tracks/genes", "", false).
		AddBinding("directory", "local", 0, map[string]string{"path": "/work/data"}).
		AddDir("data").
		Build("atlas.projdoc")

	require.Equal(t, "/work/atlas.projdoc", path)
	require.True(t, fs.Exists("/work/data"))

	p, err := codec.Read(fs, path)
	require.NoError(t, err)
	require.Equal(t, "Atlas", p.Title)
	require.Len(t, p.Tree.Items, 1)
	require.Equal(t, "item_fixture001", p.Tree.Items[0].ID)
	require.Equal(t, "genomes", p.Tree.Items[0].Payload.Kind)

	results := p.Tree.FindFolder("Results")
	require.NotNil(t, results)
	require.True(t, results.Items[0].Payload.IsLegacy())
	require.Len(t, p.Bindings, 1)
}
