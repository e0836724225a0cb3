// Package codec reads and writes project files: a YAML frontmatter header
// carrying the title and data-source bindings, followed by a YAML body with
// the folder tree.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// FormatVersion is written into every header.
const FormatVersion = "projdoc/v1"

var (
	// ErrMissingHeader is returned when a file has no format header.
	ErrMissingHeader = errors.New("missing project header")

	// ErrUnsupportedFormat is returned for unknown format versions.
	ErrUnsupportedFormat = errors.New("unsupported project format")
)

// Project is the decoded content of a project file.
type Project struct {
	Title    string
	Tree     *models.Folder
	Bindings []*models.DataSourceBinding
}

// Read reads and decodes the project file at path.
func Read(fs filesystem.FileSystem, path string) (*Project, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	project, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return project, nil
}

// Encode serializes p.
func Encode(p *Project) ([]byte, error) {
	if p == nil || p.Tree == nil {
		return nil, errors.New("nothing to encode")
	}

	h := header{Format: FormatVersion, Title: p.Title}
	for _, b := range p.Bindings {
		h.Bindings = append(h.Bindings, bindingFrom(b))
	}

	enc := newEncoder()
	root := body{
		Items:   enc.items(p.Tree.Items),
		Folders: enc.folders(p.Tree.Folders),
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	if err := writeYAML(&buf, h); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	buf.WriteString("---\n")
	if err := writeYAML(&buf, root); err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a project file.
func Decode(data []byte) (*Project, error) {
	var h header
	rest, err := frontmatter.Parse(bytes.NewReader(data), &h)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if h.Format == "" {
		return nil, ErrMissingHeader
	}
	if h.Format != FormatVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, h.Format)
	}

	var root body
	if len(bytes.TrimSpace(rest)) > 0 {
		if err := yaml.Unmarshal(rest, &root); err != nil {
			return nil, fmt.Errorf("failed to parse tree: %w", err)
		}
	}

	dec := newDecoder()
	tree := models.NewFolder("", time.Time{})
	tree.Items, err = dec.items(root.Items)
	if err != nil {
		return nil, err
	}
	tree.Folders, err = dec.folders(root.Folders)
	if err != nil {
		return nil, err
	}
	dec.link()

	project := &Project{Title: h.Title, Tree: tree}
	for _, b := range h.Bindings {
		binding, err := b.model()
		if err != nil {
			return nil, err
		}
		project.Bindings = append(project.Bindings, binding)
	}
	return project, nil
}

// Verify reports whether data is a readable project file.
func Verify(data []byte) error {
	_, err := Decode(data)
	return err
}

func writeYAML(buf *bytes.Buffer, v any) error {
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
