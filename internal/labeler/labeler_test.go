package labeler

import (
	"testing"

	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/stretchr/testify/require"
)

func TestTemplate_DefaultTemplate(t *testing.T) {
	l, err := NewTemplate(config.DefaultLabelTemplate)
	require.NoError(t, err)

	require.Equal(t, "hg19", l.LabelFor(models.NewPayload("genomes/hg19", "v1.0.0", "genome")))
	require.Equal(t, "", l.LabelFor(nil))
}

func TestTemplate_SprigFunctions(t *testing.T) {
	l, err := NewTemplate(`{{ .Kind | default "item" | title }} {{ .ID | base | upper }}{{ with .Version }} ({{ . }}){{ end }}`)
	require.NoError(t, err)

	require.Equal(t, "Genome HG19 (v1.0.0)", l.LabelFor(models.NewPayload("genomes/hg19", "v1.0.0", "genome")))
	require.Equal(t, "Item TRACK", l.LabelFor(models.NewPayload("tracks/track", "", "")))
}

func TestTemplate_FallsBackToID(t *testing.T) {
	l, err := NewTemplate(`{{ index .Attributes "missing" }}`)
	require.NoError(t, err)

	require.Equal(t, "genomes/hg19", l.LabelFor(models.NewPayload("genomes/hg19", "", "")))
}

func TestNewTemplate_ParseError(t *testing.T) {
	_, err := NewTemplate(`{{ .ID `)
	require.Error(t, err)
}

func TestFunc(t *testing.T) {
	l := Func(func(p *models.Payload) string { return "x-" + p.ID })
	require.Equal(t, "x-a", l.LabelFor(models.NewPayload("a", "", "")))
}
