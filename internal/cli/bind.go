package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// BindCommand handles the bind command
type BindCommand struct {
	env *environment
}

// NewBindCommand creates a new bind command
func NewBindCommand(env *environment) *cobra.Command {
	cmd := &BindCommand{env: env}

	cobraCmd := &cobra.Command{
		Use:   "bind <file>",
		Short: "Add or remove a data-source binding",
		Example: `  projdoc bind atlas.projdoc --type github --label upstream --set owner=acme --set repo=atlas
  projdoc bind atlas.projdoc --type github --set owner=acme --set repo=atlas --set ref=release-1
  projdoc bind atlas.projdoc --type directory --set path=./data --priority 10
  projdoc bind atlas.projdoc --remove upstream`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().String("type", "", "Loader type (github or directory)")
	cobraCmd.Flags().String("label", "", "Binding label (defaults to the loader type)")
	cobraCmd.Flags().Int("priority", 0, "Registration priority; lower loads earlier")
	cobraCmd.Flags().StringArray("set", nil, "Provider configuration key=value (repeatable)")
	cobraCmd.Flags().String("remove", "", "Remove the binding with this label instead")

	return cobraCmd
}

// Run executes the bind command
func (c *BindCommand) Run(cmd *cobra.Command, args []string) error {
	loaderType, _ := cmd.Flags().GetString("type")
	label, _ := cmd.Flags().GetString("label")
	priority, _ := cmd.Flags().GetInt("priority")
	pairs, _ := cmd.Flags().GetStringArray("set")
	remove, _ := cmd.Flags().GetString("remove")

	if remove == "" && loaderType == "" {
		return fmt.Errorf("--type is required")
	}
	config, err := parseSettings(pairs)
	if err != nil {
		return err
	}

	s, err := c.env.open(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()

	if err := s.load(cmd.Context(), args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if remove != "" {
		b := s.doc.Binding(remove)
		if b == nil {
			return fmt.Errorf("no binding labelled %q", remove)
		}
		if !s.doc.RemoveBinding(b) {
			return fmt.Errorf("failed to remove binding %q", remove)
		}
		if err := s.save(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Removed binding %s", remove)))
		return nil
	}

	before := len(s.doc.Bindings())
	b := models.NewDataSourceBinding(loaderType, label, config, priority)
	if err := s.doc.AddItems("", nil, []*models.DataSourceBinding{b}); err != nil {
		return err
	}

	bindings := s.doc.Bindings()
	if len(bindings) == before {
		_, _ = fmt.Fprintln(out, subtleStyle.Render("Binding already present, nothing to do"))
		return nil
	}
	added := bindings[len(bindings)-1]

	if err := s.save(); err != nil {
		return err
	}
	if !added.Enabled {
		_, _ = fmt.Fprintf(out, "Added binding %s but it could not be attached (see log)\n", added.Label)
		return nil
	}
	_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Bound %s as %s", added.Label, added.GeneratedName())))
	return nil
}

// parseSettings turns key=value pairs into a provider config.
func parseSettings(pairs []string) (map[string]string, error) {
	config := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: expected key=value", pair)
		}
		config[key] = value
	}
	return config, nil
}
