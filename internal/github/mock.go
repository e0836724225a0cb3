package github

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient implements GitHubClient for testing. Lookups are case
// insensitive like the real API.
type MockClient struct {
	mu           sync.RWMutex
	repositories map[string]*Repository // key: "owner/repo"
	branches     map[string]*Branch     // key: "owner/repo/branch"
	calls        int

	// Hooks for testing error scenarios
	GetRepositoryError error
	GetBranchError     error
}

// NewMockClient creates a new MockClient
func NewMockClient() *MockClient {
	return &MockClient{
		repositories: make(map[string]*Repository),
		branches:     make(map[string]*Branch),
	}
}

// SetupRepository adds a public repository with a "main" branch
func (m *MockClient) SetupRepository(owner, repo string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fullName := owner + "/" + repo
	m.repositories[strings.ToLower(fullName)] = &Repository{
		Owner:         owner,
		Name:          repo,
		FullName:      fullName,
		URL:           fmt.Sprintf("https://github.com/%s", fullName),
		DefaultBranch: "main",
	}
	m.addBranch(owner, repo, "main")
}

// ArchiveRepository marks a configured repository as archived
func (m *MockClient) ArchiveRepository(owner, repo string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.repositories[strings.ToLower(owner+"/"+repo)]; ok {
		r.Archived = true
	}
}

// AddBranch adds a branch to a repository
func (m *MockClient) AddBranch(owner, repo, branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addBranch(owner, repo, branch)
}

func (m *MockClient) addBranch(owner, repo, branch string) {
	key := strings.ToLower(owner + "/" + repo + "/" + branch)
	m.branches[key] = &Branch{Name: branch, SHA: fmt.Sprintf("%040x", len(m.branches)+1)}
}

func (m *MockClient) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.GetRepositoryError != nil {
		return nil, m.GetRepositoryError
	}

	r, ok := m.repositories[strings.ToLower(owner+"/"+repo)]
	if !ok {
		return nil, fmt.Errorf("repository %s/%s not found", owner, repo)
	}
	copied := *r
	return &copied, nil
}

func (m *MockClient) GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.GetBranchError != nil {
		return nil, m.GetBranchError
	}

	b, ok := m.branches[strings.ToLower(owner+"/"+repo+"/"+branch)]
	if !ok {
		return nil, fmt.Errorf("branch %s of %s/%s not found", branch, owner, repo)
	}
	copied := *b
	return &copied, nil
}

// Calls returns the number of API calls made so far
func (m *MockClient) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
