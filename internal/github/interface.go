// Package github looks up the repositories that back github data-source
// bindings.
package github

import (
	"context"
)

// GitHubClient is the read-only slice of the GitHub API the github
// provider materializes bindings with
type GitHubClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)

	// GetBranch returns a branch of the repository, used to pin a binding
	// to a ref
	GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error)
}

// Repository is the metadata a binding needs about a repository
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	URL           string
	DefaultBranch string
	Archived      bool
	Private       bool
}

// Branch is a named ref in a repository
type Branch struct {
	Name      string
	SHA       string
	Protected bool
}
