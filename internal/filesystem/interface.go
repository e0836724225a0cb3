// Package filesystem abstracts the file operations projdoc performs so the
// save and import paths can be exercised against an in-memory tree.
package filesystem

import (
	"io/fs"
)

// FileSystem is the set of file operations documents, the importer and the
// config loader use
type FileSystem interface {
	ReadFile(path string) ([]byte, error)

	// WriteFile must have the data durable once it returns nil; the save
	// path renames the file into place right after verifying it
	WriteFile(path string, data []byte, perm fs.FileMode) error
	Remove(path string) error

	// Rename replaces newPath if it exists
	Rename(oldPath, newPath string) error
	MkdirAll(path string, perm fs.FileMode) error

	Stat(path string) (fs.FileInfo, error)
	Exists(path string) bool

	// WalkDir visits paths in lexical order and honors filepath.SkipDir
	WalkDir(root string, fn fs.WalkDirFunc) error
}
