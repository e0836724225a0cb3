// Package fixture builds in-memory filesystems holding project files for
// tests.
package fixture

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// Created is the creation time stamped on builder folders.
var Created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ProjectBuilder helps create test projects
type ProjectBuilder struct {
	fs      *filesystem.MockFileSystem
	root    string
	project *codec.Project
	items   int
}

// NewProjectBuilder creates a builder whose files live under root
func NewProjectBuilder(root string) *ProjectBuilder {
	fs := filesystem.NewMockFileSystem()
	fs.AddDir(root)

	return &ProjectBuilder{
		fs:   fs,
		root: root,
		project: &codec.Project{
			Title: "Test Project",
			Tree:  models.NewFolder("", time.Time{}),
		},
	}
}

// Title sets the project title
func (pb *ProjectBuilder) Title(title string) *ProjectBuilder {
	pb.project.Title = title
	return pb
}

// AddItem adds an item to folder (empty for the root). An empty version
// makes the payload a legacy identifier.
func (pb *ProjectBuilder) AddItem(folder, label, payloadID, version string, enabled bool) *ProjectBuilder {
	pb.items++
	item := &models.ContentItem{
		ID:      fmt.Sprintf("item_fixture%03d", pb.items),
		Label:   label,
		Enabled: enabled,
		Payload: models.NewPayload(payloadID, version, kindOf(payloadID)),
		Extra:   map[string]string{},
	}

	target := pb.project.Tree
	if folder != "" {
		target = target.EnsureFolder(folder, Created)
	}
	target.Items = append(target.Items, item)
	return pb
}

// AddBinding adds an enabled data-source binding
func (pb *ProjectBuilder) AddBinding(loaderType, label string, priority int, config map[string]string) *ProjectBuilder {
	b := models.NewDataSourceBinding(loaderType, label, config, priority)
	b.Enabled = true
	pb.project.Bindings = append(pb.project.Bindings, b)
	return pb
}

// AddFile adds a file relative to the root
func (pb *ProjectBuilder) AddFile(rel, content string) *ProjectBuilder {
	pb.fs.AddFile(filepath.Join(pb.root, rel), []byte(content))
	return pb
}

// AddDir adds a directory relative to the root
func (pb *ProjectBuilder) AddDir(rel string) *ProjectBuilder {
	pb.fs.AddDir(filepath.Join(pb.root, rel))
	return pb
}

// Build writes the project file as name under the root and returns the
// filesystem together with the file's path
func (pb *ProjectBuilder) Build(name string) (*filesystem.MockFileSystem, string) {
	data, err := codec.Encode(pb.project)
	if err != nil {
		panic(fmt.Sprintf("fixture: encode project: %v", err))
	}

	path := filepath.Join(pb.root, name)
	pb.fs.AddFile(path, data)
	return pb.fs, path
}

// FileSystem returns the mock filesystem
func (pb *ProjectBuilder) FileSystem() *filesystem.MockFileSystem {
	return pb.fs
}

// Project returns the project as built so far
func (pb *ProjectBuilder) Project() *codec.Project {
	return pb.project
}

func kindOf(payloadID string) string {
	dir := filepath.Dir(payloadID)
	if dir == "." || dir == "/" {
		return "item"
	}
	return filepath.Base(dir)
}
