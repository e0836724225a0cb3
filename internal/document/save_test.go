package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

func TestLoadAddSaveWithBackup(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	items := []*models.ContentItem{
		models.NewContentItem("", models.NewPayload("tracks/genes", "v1.0.0", "track")),
		models.NewContentItem("", models.NewPayload("tracks/genes", "v1.1.0", "track")),
	}
	require.NoError(t, doc.AddItems("Results", items, nil))
	assert.True(t, doc.Dirty())

	require.NoError(t, doc.Save(projectPath, true))
	assert.False(t, doc.Dirty())

	backup, err := fs.ReadFile(projectPath + ".bak")
	require.NoError(t, err)
	assert.Equal(t, original, backup)
	assert.False(t, fs.Exists(projectPath+".1"))

	saved, err := codec.Read(fs, projectPath)
	require.NoError(t, err)
	results := saved.Tree.FindFolder("Results")
	require.NotNil(t, results)
	require.Len(t, results.Items, 2)
	assert.Equal(t, "genes", results.Items[0].Label)
	assert.Equal(t, "genes-2", results.Items[1].Label)
	assert.True(t, results.Items[0].Enabled)
}

func TestSave_ReplacesWithoutBackup(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	require.NoError(t, doc.Save("", false))
	assert.False(t, fs.Exists(projectPath+".bak"))
	assert.False(t, fs.Exists(projectPath+".1"))
	assert.True(t, fs.Exists(projectPath))
}

func TestSave_RotatesExistingBackup(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	fs.AddFile(projectPath+".bak", []byte("stale"))
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	require.NoError(t, doc.Save(projectPath, true))
	backup, err := fs.ReadFile(projectPath + ".bak")
	require.NoError(t, err)
	assert.Equal(t, original, backup)
	assert.False(t, fs.Exists(projectPath+".bak.1"))
}

func TestSave_ReplaceFailureRestoresOldBackup(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	fs.AddFile(projectPath+".bak", []byte("stale"))
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	fs.RenameHook = func(oldPath, newPath string) error {
		if oldPath == projectPath+".1" && newPath == projectPath {
			return errors.New("device busy")
		}
		return nil
	}
	err := doc.Save(projectPath, true)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, PhaseReplace, saveErr.Phase)
	assert.True(t, saveErr.OriginalSafe())

	current, readErr := fs.ReadFile(projectPath)
	require.NoError(t, readErr)
	assert.Equal(t, original, current)

	backup, readErr := fs.ReadFile(projectPath + ".bak")
	require.NoError(t, readErr)
	assert.Equal(t, []byte("stale"), backup)
	assert.False(t, fs.Exists(projectPath+".bak.1"))
	assert.False(t, fs.Exists(projectPath+".1"))
}

func TestSave_VerifyFailureLeavesOriginal(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)
	require.NoError(t, doc.AddItems("Results", []*models.ContentItem{models.NewContentItem("x", nil)}, nil))

	// the write reports success but garbage reaches the disk
	fs.WriteHook = func(path string, data []byte) ([]byte, error) {
		return []byte("---\nformat: projdoc/v1\n---\nitems: [unclosed\n"), nil
	}

	err := doc.Save(projectPath, true)
	require.Error(t, err)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, PhaseVerify, saveErr.Phase)
	assert.True(t, saveErr.OriginalSafe())
	assert.Contains(t, err.Error(), "the original file "+projectPath+" is safe")

	current, readErr := fs.ReadFile(projectPath)
	require.NoError(t, readErr)
	assert.Equal(t, original, current)
	assert.False(t, fs.Exists(projectPath+".1"))
	assert.False(t, fs.Exists(projectPath+".bak"))

	assert.True(t, doc.Dirty())
	assert.ErrorIs(t, doc.LastError(), err)
}

func TestSave_KeepsFailedFileWhenConfigured(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs, func(o *Options) { o.Config.Document.KeepFailedSaves = true })
	loadAndWait(t, doc, projectPath)

	diskFull := errors.New("no space left on device")
	fs.WriteHook = func(path string, data []byte) ([]byte, error) {
		return data[:10], diskFull
	}

	err := doc.Save(projectPath, false)
	require.ErrorIs(t, err, diskFull)
	assert.True(t, IsSaveError(err))
	assert.True(t, fs.Exists(projectPath+".1"))

	current, readErr := fs.ReadFile(projectPath)
	require.NoError(t, readErr)
	assert.Equal(t, original, current)

	// the next attempt picks the next free name and cleans up after itself
	fs.WriteHook = nil
	require.NoError(t, doc.Save(projectPath, false))
	assert.True(t, fs.Exists(projectPath+".1"))
	assert.False(t, fs.Exists(projectPath+".2"))
}

func TestSave_RotateFailureLeavesOriginal(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	original := writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	fs.RenameError = errors.New("permission denied")
	err := doc.Save(projectPath, true)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, PhaseRotate, saveErr.Phase)
	assert.True(t, saveErr.OriginalSafe())

	current, readErr := fs.ReadFile(projectPath)
	require.NoError(t, readErr)
	assert.Equal(t, original, current)
	assert.False(t, fs.Exists(projectPath+".1"))
}

func TestSave_ReplaceFailureKeepsNewContent(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)

	fs.RenameError = errors.New("device busy")
	err := doc.Save(projectPath, false)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, PhaseReplace, saveErr.Phase)
	assert.False(t, saveErr.OriginalSafe())
	assert.True(t, strings.HasSuffix(err.Error(), "the new content was kept in "+projectPath+".1"))
	assert.True(t, fs.Exists(projectPath+".1"))
}

func TestSave_MutationDuringWriteKeepsDirty(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	writeProject(t, fs, projectPath, sampleProject())
	doc := newTestDocument(t, fs)
	loadAndWait(t, doc, projectPath)
	require.NoError(t, doc.AddItems("", []*models.ContentItem{models.NewContentItem("a", nil)}, nil))

	writing := make(chan struct{})
	proceed := make(chan struct{})
	fs.WriteHook = func(path string, data []byte) ([]byte, error) {
		close(writing)
		<-proceed
		return data, nil
	}

	result := doc.SaveAsync(projectPath, false)
	<-writing
	require.NoError(t, doc.AddItems("", []*models.ContentItem{models.NewContentItem("b", nil)}, nil))
	close(proceed)

	require.NoError(t, <-result)
	assert.True(t, doc.Dirty())
}

func TestSave_Preconditions(t *testing.T) {
	doc := newTestDocument(t, filesystem.NewMockFileSystem())

	err := doc.Save(projectPath, false)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, doc.NewProject("Scratch"))
	require.ErrorIs(t, doc.Save("", false), ErrNoPath)
}

func TestSave_NewProjectRemembersPath(t *testing.T) {
	fs := filesystem.NewMockFileSystem()
	fs.AddDir("/work")
	doc := newTestDocument(t, fs)
	require.NoError(t, doc.NewProject("Scratch"))

	require.NoError(t, doc.Save(projectPath, true))
	assert.Equal(t, projectPath, doc.FilePath())
	assert.False(t, fs.Exists(projectPath+".bak"))

	saved, err := codec.Read(fs, projectPath)
	require.NoError(t, err)
	assert.Equal(t, "Scratch", saved.Title)
}
