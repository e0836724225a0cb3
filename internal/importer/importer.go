// Package importer builds content items from files on disk as background
// jobs.
package importer

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"

	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

// DirectoryJob returns a job that walks root and produces one detached
// content item per regular file. Paths matched by the root .gitignore and
// the .git directory are skipped. The job result is []*models.ContentItem.
func DirectoryJob(fsys filesystem.FileSystem, root string) jobs.Job {
	return func(tok *jobs.Token) (any, error) {
		return Directory(tok, fsys, root)
	}
}

// Directory performs the walk of DirectoryJob. The token is checked once
// per file.
func Directory(tok *jobs.Token, fsys filesystem.FileSystem, root string) ([]*models.ContentItem, error) {
	root = filepath.Clean(root)
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	ignore, err := loadGitIgnore(fsys, root)
	if err != nil {
		return nil, err
	}

	var items []*models.ContentItem
	err = fsys.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if entry.Name() == ".git" || ignored(ignore, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == ".gitignore" || ignored(ignore, rel, false) {
			return nil
		}

		if err := tok.Err(); err != nil {
			return err
		}

		items = append(items, itemFor(path, rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func itemFor(path, rel string) *models.ContentItem {
	kind := strings.TrimPrefix(filepath.Ext(rel), ".")
	if kind == "" {
		kind = "file"
	}

	payload := models.NewPayload(rel, "", strings.ToLower(kind))
	payload.Attributes = map[string]string{"path": path}

	return models.NewContentItem("", payload)
}

func ignored(ignore gitignore.GitIgnore, rel string, isDir bool) bool {
	if ignore == nil {
		return false
	}
	match := ignore.Relative(rel, isDir)
	return match != nil && match.Ignore()
}

func loadGitIgnore(fsys filesystem.FileSystem, root string) (gitignore.GitIgnore, error) {
	ignorePath := filepath.Join(root, ".gitignore")
	if !fsys.Exists(ignorePath) {
		return nil, nil
	}

	data, err := fsys.ReadFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}

	return gitignore.New(bytes.NewReader(data), root, nil), nil
}
