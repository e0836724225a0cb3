package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCommand handles the init command
type InitCommand struct {
	env *environment
}

// NewInitCommand creates a new init command
func NewInitCommand(env *environment) *cobra.Command {
	cmd := &InitCommand{env: env}

	cobraCmd := &cobra.Command{
		Use:   "init <file>",
		Short: "Create an empty project document",
		Args:  cobra.ExactArgs(1),
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().String("title", "", "Project title (defaults to the file name)")
	cobraCmd.Flags().Bool("force", false, "Overwrite an existing file")

	return cobraCmd
}

// Run executes the init command
func (c *InitCommand) Run(cmd *cobra.Command, args []string) error {
	path := args[0]
	title, _ := cmd.Flags().GetString("title")
	force, _ := cmd.Flags().GetBool("force")

	if c.env.fs.Exists(path) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if title == "" {
		title = projectName(path)
	}

	s, err := c.env.open(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.doc.NewProject(title); err != nil {
		return err
	}
	if err := s.doc.Save(path, force && s.cfg.Document.KeepBackups); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Created %s", path)))
	return nil
}
