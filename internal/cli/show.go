package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// ShowCommand handles the show command
type ShowCommand struct {
	env *environment
}

// ProjectOutput is the JSON form of a loaded document
type ProjectOutput struct {
	Title    string          `json:"title"`
	Path     string          `json:"path"`
	Dirty    bool            `json:"dirty"`
	Tree     FolderOutput    `json:"tree"`
	Bindings []BindingOutput `json:"bindings"`
}

// FolderOutput is one folder of the content tree
type FolderOutput struct {
	Title   string         `json:"title"`
	Items   []ItemOutput   `json:"items"`
	Folders []FolderOutput `json:"folders,omitempty"`
}

// ItemOutput is one content item
type ItemOutput struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Payload string `json:"payload"`
	Legacy  bool   `json:"legacy,omitempty"`
	Enabled bool   `json:"enabled"`
}

// BindingOutput is one data-source binding
type BindingOutput struct {
	Label    string            `json:"label"`
	Type     string            `json:"type"`
	Priority int               `json:"priority"`
	Enabled  bool              `json:"enabled"`
	Config   map[string]string `json:"config,omitempty"`
}

// NewShowCommand creates a new show command
func NewShowCommand(env *environment) *cobra.Command {
	cmd := &ShowCommand{env: env}

	cobraCmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the content tree and bindings of a project",
		Example: `  # Show the tree in human-readable format
  projdoc show atlas.projdoc

  # Output JSON for scripting
  projdoc show atlas.projdoc --format json`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().String("format", "text", "Output format: text or json")

	return cobraCmd
}

// Run executes the show command
func (c *ShowCommand) Run(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (expected text or json)", format)
	}

	s, err := c.env.open(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}

	out := ProjectOutput{
		Title: s.doc.Title(),
		Path:  s.doc.FilePath(),
		Dirty: s.doc.Dirty(),
	}
	if err := s.doc.Inspect(func(tree *models.Folder) {
		out.Tree = folderOutput(tree)
	}); err != nil {
		return err
	}
	for _, b := range s.doc.Bindings() {
		out.Bindings = append(out.Bindings, BindingOutput{
			Label:    b.Label,
			Type:     b.LoaderType,
			Priority: b.Priority,
			Enabled:  b.Enabled,
			Config:   b.Config,
		})
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), renderProject(out))
	return nil
}

func folderOutput(f *models.Folder) FolderOutput {
	out := FolderOutput{Title: f.Title, Items: []ItemOutput{}}
	for _, item := range f.Items {
		out.Items = append(out.Items, ItemOutput{
			ID:      item.ID,
			Label:   item.Label,
			Payload: item.Payload.Key(),
			Legacy:  item.Payload.IsLegacy(),
			Enabled: item.Enabled,
		})
	}
	for _, child := range f.Folders {
		out.Folders = append(out.Folders, folderOutput(child))
	}
	return out
}

func renderProject(p ProjectOutput) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(p.Title))
	sb.WriteString(" " + subtleStyle.Render("("+p.Path+")"))
	sb.WriteString("\n")
	renderFolder(&sb, p.Tree, 0)

	if len(p.Bindings) > 0 {
		sb.WriteString("\n" + folderStyle.Render("Bindings") + "\n")
		for _, b := range p.Bindings {
			fmt.Fprintf(&sb, "  %s %s %s\n", marker(b.Enabled), b.Label,
				subtleStyle.Render(fmt.Sprintf("%s, priority %d", b.Type, b.Priority)))
		}
	}
	return sb.String()
}

func renderFolder(sb *strings.Builder, f FolderOutput, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, item := range f.Items {
		payload := item.Payload
		if item.Legacy {
			payload += " (legacy)"
		}
		fmt.Fprintf(sb, "%s  %s %s %s\n", indent, marker(item.Enabled), item.Label, subtleStyle.Render(payload))
	}
	for _, child := range f.Folders {
		fmt.Fprintf(sb, "%s  %s\n", indent, folderStyle.Render(child.Title+"/"))
		renderFolder(sb, child, depth+1)
	}
}

func marker(enabled bool) string {
	if enabled {
		return enabledStyle.Render("●")
	}
	return disabledStyle.Render("○")
}

// projectName derives a title from a file name: "atlas.projdoc" -> "atlas".
func projectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
