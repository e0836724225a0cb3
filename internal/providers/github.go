package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakoblorz/go-projectdoc/internal/github"
)

// GitHubLoaderType is the loader type served by GitHubProvider.
const GitHubLoaderType = "github"

// GitHubProvider binds a GitHub repository as a data source. Config keys:
// "owner" and "repo", plus an optional "ref" naming the branch to pin.
type GitHubProvider struct {
	client github.GitHubClient
}

// NewGitHubProvider creates a provider backed by client.
func NewGitHubProvider(client github.GitHubClient) *GitHubProvider {
	return &GitHubProvider{client: client}
}

func (p *GitHubProvider) Materialize(ctx context.Context, config map[string]string) (string, error) {
	if err := requireKeys(config, "owner", "repo"); err != nil {
		return "", err
	}

	repo, err := p.client.GetRepository(ctx, config["owner"], config["repo"])
	if err != nil {
		return "", fmt.Errorf("failed to materialize github binding: %w", err)
	}
	if repo.Archived {
		return "", fmt.Errorf("repository %s is archived", repo.FullName)
	}

	name := "github:" + strings.ToLower(repo.FullName)
	if ref := config["ref"]; ref != "" {
		if _, err := p.client.GetBranch(ctx, config["owner"], config["repo"], ref); err != nil {
			return "", fmt.Errorf("failed to materialize github binding: %w", err)
		}
		name += "@" + ref
	}
	return name, nil
}

func (p *GitHubProvider) LogicalNameFor(config map[string]string) string {
	name := "github:" + strings.ToLower(config["owner"]+"/"+config["repo"])
	if ref := config["ref"]; ref != "" {
		name += "@" + ref
	}
	return name
}
