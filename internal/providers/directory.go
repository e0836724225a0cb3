package providers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
)

// DirectoryLoaderType is the loader type served by DirectoryProvider.
const DirectoryLoaderType = "directory"

// DirectoryProvider binds a local directory as a data source. Config key:
// "path".
type DirectoryProvider struct {
	fs filesystem.FileSystem
}

// NewDirectoryProvider creates a provider reading from fs.
func NewDirectoryProvider(fs filesystem.FileSystem) *DirectoryProvider {
	return &DirectoryProvider{fs: fs}
}

func (p *DirectoryProvider) Materialize(ctx context.Context, config map[string]string) (string, error) {
	if err := requireKeys(config, "path"); err != nil {
		return "", err
	}

	info, err := p.fs.Stat(config["path"])
	if err != nil {
		return "", fmt.Errorf("failed to materialize directory binding: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", config["path"])
	}

	return p.LogicalNameFor(config), nil
}

func (p *DirectoryProvider) LogicalNameFor(config map[string]string) string {
	return "dir:" + filepath.Clean(config["path"])
}
