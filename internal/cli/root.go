// Package cli wires the projdoc document into cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/github"
)

// GitHubFactory builds the client used by the github data-source provider
// once configuration is known.
type GitHubFactory func(cfg *config.Config) (github.GitHubClient, error)

// DefaultGitHubFactory authenticates with the configured token, falling
// back to anonymous access.
func DefaultGitHubFactory(cfg *config.Config) (github.GitHubClient, error) {
	client, err := github.New(github.Options{
		Token:   cfg.GitHub.Token.Value(),
		BaseURL: cfg.GitHub.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewRootCommand creates the root command
func NewRootCommand(fs filesystem.FileSystem, gh GitHubFactory) *cobra.Command {
	env := &environment{fs: fs, gh: gh}

	rootCmd := &cobra.Command{
		Use:   "projdoc",
		Short: "Inspect and edit project documents",
		Long: `A CLI tool for project documents.

A project document is a tree of folders and content items together with the
data sources the items are resolved against. Every command loads the file,
applies its change and saves it back atomically.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "projdoc.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	rootCmd.AddCommand(NewInitCommand(env))
	rootCmd.AddCommand(NewShowCommand(env))
	rootCmd.AddCommand(NewAddCommand(env))
	rootCmd.AddCommand(NewBindCommand(env))
	rootCmd.AddCommand(NewNormalizeCommand(env))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	fs := filesystem.NewOSFileSystem()

	rootCmd := NewRootCommand(fs, DefaultGitHubFactory)

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	return nil
}
