package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakoblorz/go-projectdoc/internal/importer"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// AddCommand handles the add command
type AddCommand struct {
	env *environment
}

// NewAddCommand creates a new add command
func NewAddCommand(env *environment) *cobra.Command {
	cmd := &AddCommand{env: env}

	cobraCmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add content items to a project",
		Long: `Add content items to a folder of a project document.

Items are given as payload identifiers, optionally pinned to a version
("genomes/hg19@v1.0.0"). An identifier without a version is stored as a
legacy identifier and resolved on the next load. With --dir every file
below a directory becomes an item; paths matched by the directory's
.gitignore are skipped.`,
		Example: `  projdoc add atlas.projdoc --folder Inputs --item genomes/hg19@v1.0.0
  projdoc add atlas.projdoc --folder Tracks --dir ./tracks`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().String("folder", "", "Target folder title (empty for the root)")
	cobraCmd.Flags().StringArray("item", nil, "Payload identifier id[@version] (repeatable)")
	cobraCmd.Flags().String("label", "", "Label for the item (only with a single --item)")
	cobraCmd.Flags().String("dir", "", "Import every file below this directory")

	return cobraCmd
}

// Run executes the add command
func (c *AddCommand) Run(cmd *cobra.Command, args []string) error {
	folder, _ := cmd.Flags().GetString("folder")
	refs, _ := cmd.Flags().GetStringArray("item")
	label, _ := cmd.Flags().GetString("label")
	dir, _ := cmd.Flags().GetString("dir")

	if len(refs) == 0 && dir == "" {
		return fmt.Errorf("nothing to add: pass --item or --dir")
	}
	if label != "" && len(refs) != 1 {
		return fmt.Errorf("--label requires exactly one --item")
	}

	items := make([]*models.ContentItem, 0, len(refs))
	for _, ref := range refs {
		payload, err := parseItemRef(ref)
		if err != nil {
			return err
		}
		items = append(items, models.NewContentItem(label, payload))
	}

	s, err := c.env.open(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}
	before, err := countItems(s)
	if err != nil {
		return err
	}

	if len(items) > 0 {
		if err := s.doc.AddItems(folder, items, nil); err != nil {
			return fmt.Errorf("failed to add items: %w", err)
		}
	}
	if dir != "" {
		if err := c.importDir(cmd, s, folder, dir); err != nil {
			return err
		}
	}

	after, err := countItems(s)
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}

	target := folder
	if target == "" {
		target = "the root folder"
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Added %d items to %s", after-before, target)))
	return nil
}

func (c *AddCommand) importDir(cmd *cobra.Command, s *session, folder, dir string) error {
	a, err := s.doc.StartImport(folder, importer.DirectoryJob(c.env.fs, dir))
	if err != nil {
		return fmt.Errorf("failed to start import: %w", err)
	}

	select {
	case <-a.Done():
	case <-cmd.Context().Done():
		a.Cancel()
		<-a.Done()
		return cmd.Context().Err()
	}

	if a.Status() != jobs.StatusCompleted {
		return fmt.Errorf("failed to import %s: %w", dir, s.doc.LastError())
	}
	return nil
}

// parseItemRef parses "id" or "id@version".
func parseItemRef(ref string) (*models.Payload, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty item identifier")
	}

	id, version := ref, ""
	if strings.Contains(ref, "@") {
		var ok bool
		id, version, ok = models.SplitCanonical(ref)
		if !ok {
			return nil, fmt.Errorf("invalid item %q: expected id@vMAJOR.MINOR.PATCH", ref)
		}
	}

	kind := "item"
	if i := strings.Index(id, "/"); i > 0 {
		kind = id[:i]
	}
	return models.NewPayload(id, version, kind), nil
}

func countItems(s *session) (int, error) {
	var n int
	err := s.doc.Inspect(func(tree *models.Folder) {
		n = len(tree.AllItems())
	})
	return n, err
}
