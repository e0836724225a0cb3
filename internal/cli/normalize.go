package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// NormalizeCommand handles the normalize command
type NormalizeCommand struct {
	env *environment
}

// NewNormalizeCommand creates a new normalize command
func NewNormalizeCommand(env *environment) *cobra.Command {
	cmd := &NormalizeCommand{env: env}

	cobraCmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Resolve legacy identifiers and rewrite the file",
		Long: `Loads the project, which resolves legacy unversioned identifiers against
the configured dataset catalog, and saves it back when anything changed.`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	return cobraCmd
}

// Run executes the normalize command
func (c *NormalizeCommand) Run(cmd *cobra.Command, args []string) error {
	s, err := c.env.open(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}

	var remaining int
	if err := s.doc.Inspect(func(tree *models.Folder) {
		for _, item := range tree.AllItems() {
			if item.Payload.IsLegacy() {
				remaining++
			}
		}
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !s.doc.Dirty() {
		_, _ = fmt.Fprintf(out, "Nothing to normalize (%d legacy identifiers unresolved)\n", remaining)
		return nil
	}
	if err := s.save(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Normalized %s", args[0])))
	if remaining > 0 {
		_, _ = fmt.Fprintln(out, subtleStyle.Render(fmt.Sprintf("%d legacy identifiers unresolved", remaining)))
	}
	return nil
}
