package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Options configures Client. Both fields are optional.
type Options struct {
	// Token authenticates requests; anonymous access is rate limited
	Token string

	// BaseURL points at a GitHub Enterprise server, e.g.
	// "https://github.example.com/api/v3/"
	BaseURL string
}

// Client implements GitHubClient on top of go-github
type Client struct {
	client *github.Client
}

// New creates a client for opts
func New(opts Options) (*Client, error) {
	var httpClient *http.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		client = enterprise
	}

	return &Client{client: client}, nil
}

func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	r, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, repo, err)
	}

	return &Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Archived:      r.GetArchived(),
		Private:       r.GetPrivate(),
	}, nil
}

func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error) {
	b, _, err := c.client.Repositories.GetBranch(ctx, owner, repo, branch, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch %s of %s/%s: %w", branch, owner, repo, err)
	}

	return &Branch{
		Name:      b.GetName(),
		SHA:       b.GetCommit().GetSHA(),
		Protected: b.GetProtected(),
	}, nil
}
