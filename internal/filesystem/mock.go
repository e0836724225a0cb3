package filesystem

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileSystem provides in-memory filesystem for testing
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string]*MockFile

	// WriteHook, when set, is consulted before every WriteFile. The returned
	// bytes are what gets stored; a non-nil error is returned to the caller
	// after storing them, which simulates a write that fails half-way.
	WriteHook func(path string, data []byte) ([]byte, error)

	// RenameHook, when set, is consulted before every Rename. A non-nil
	// error fails that rename only.
	RenameHook func(oldPath, newPath string) error

	// Hooks for testing error scenarios
	RenameError error
	RemoveError error
}

// MockFile represents a file in the mock filesystem
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements fs.DirEntry
type mockDirEntry struct {
	info fs.FileInfo
}

func (m *mockDirEntry) Name() string               { return m.info.Name() }
func (m *mockDirEntry) IsDir() bool                { return m.info.IsDir() }
func (m *mockDirEntry) Type() fs.FileMode          { return m.info.Mode().Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) { return m.info, nil }

// NewMockFileSystem creates a new MockFileSystem
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem
func (mfs *MockFileSystem) AddFile(path string, content []byte) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	cleanPath := filepath.Clean(path)
	mfs.files[cleanPath] = &MockFile{
		Content: append([]byte(nil), content...),
		Mode:    0644,
		ModTime: time.Now(),
		IsDir:   false,
	}
	mfs.addParents(cleanPath)
}

// AddDir adds a directory to the mock filesystem
func (mfs *MockFileSystem) AddDir(path string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.addDir(filepath.Clean(path))
}

func (mfs *MockFileSystem) addDir(cleanPath string) {
	if _, exists := mfs.files[cleanPath]; !exists {
		mfs.files[cleanPath] = &MockFile{
			Mode:    0755 | fs.ModeDir,
			ModTime: time.Now(),
			IsDir:   true,
		}
	}
	mfs.addParents(cleanPath)
}

// addParents ensures parent directories exist
func (mfs *MockFileSystem) addParents(cleanPath string) {
	dir := filepath.Dir(cleanPath)
	for dir != "." && dir != "/" && dir != cleanPath {
		if _, exists := mfs.files[dir]; !exists {
			mfs.files[dir] = &MockFile{
				Mode:    0755 | fs.ModeDir,
				ModTime: time.Now(),
				IsDir:   true,
			}
		}
		dir = filepath.Dir(dir)
	}
}

func (mfs *MockFileSystem) ReadFile(path string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	file, exists := mfs.files[filepath.Clean(path)]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if file.IsDir {
		return nil, errors.New("is a directory")
	}
	return append([]byte(nil), file.Content...), nil
}

func (mfs *MockFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	mfs.mu.RLock()
	hook := mfs.WriteHook
	mfs.mu.RUnlock()

	var hookErr error
	if hook != nil {
		data, hookErr = hook(path, data)
	}

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	cleanPath := filepath.Clean(path)

	// Ensure parent directory exists
	dir := filepath.Dir(cleanPath)
	if dir != "." && dir != "/" {
		if _, exists := mfs.files[dir]; !exists {
			return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
	}

	mfs.files[cleanPath] = &MockFile{
		Content: append([]byte(nil), data...),
		Mode:    perm,
		ModTime: time.Now(),
		IsDir:   false,
	}
	return hookErr
}

func (mfs *MockFileSystem) Remove(path string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if mfs.RemoveError != nil {
		return mfs.RemoveError
	}
	cleanPath := filepath.Clean(path)
	if _, exists := mfs.files[cleanPath]; !exists {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(mfs.files, cleanPath)
	return nil
}

func (mfs *MockFileSystem) Rename(oldPath, newPath string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if mfs.RenameError != nil {
		return mfs.RenameError
	}
	if mfs.RenameHook != nil {
		if err := mfs.RenameHook(oldPath, newPath); err != nil {
			return err
		}
	}
	from, to := filepath.Clean(oldPath), filepath.Clean(newPath)
	file, exists := mfs.files[from]
	if !exists {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if file.IsDir {
		return errors.New("rename of directories is not supported")
	}
	delete(mfs.files, from)
	mfs.files[to] = file
	mfs.addParents(to)
	return nil
}

func (mfs *MockFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	cleanPath := filepath.Clean(path)
	parts := strings.Split(cleanPath, string(filepath.Separator))

	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if current == "" {
			current = string(filepath.Separator) + part
		} else {
			current = filepath.Join(current, part)
		}

		if _, exists := mfs.files[current]; !exists {
			mfs.files[current] = &MockFile{
				Mode:    perm | fs.ModeDir,
				ModTime: time.Now(),
				IsDir:   true,
			}
		}
	}
	return nil
}

func (mfs *MockFileSystem) Stat(path string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	file, exists := mfs.files[filepath.Clean(path)]
	if !exists {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}

	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Mode,
		modTime: file.ModTime,
		isDir:   file.IsDir,
	}, nil
}

func (mfs *MockFileSystem) Exists(path string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	_, exists := mfs.files[filepath.Clean(path)]
	return exists
}

func (mfs *MockFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	mfs.mu.RLock()
	cleanRoot := filepath.Clean(root)

	if _, exists := mfs.files[cleanRoot]; !exists {
		mfs.mu.RUnlock()
		return fs.ErrNotExist
	}

	// Collect all paths that are under root
	var paths []string
	infos := make(map[string]*mockFileInfo)
	for p, file := range mfs.files {
		if p == cleanRoot || strings.HasPrefix(p, cleanRoot+string(filepath.Separator)) {
			paths = append(paths, p)
			infos[p] = &mockFileInfo{
				name:    filepath.Base(p),
				size:    int64(len(file.Content)),
				mode:    file.Mode,
				modTime: file.ModTime,
				isDir:   file.IsDir,
			}
		}
	}
	mfs.mu.RUnlock()

	// Sort paths for consistent ordering
	sort.Strings(paths)

	var skipped []string
	for _, p := range paths {
		if underAny(p, skipped) {
			continue
		}
		info := infos[p]
		if err := fn(p, &mockDirEntry{info: info}, nil); err != nil {
			if err == filepath.SkipDir && info.isDir {
				skipped = append(skipped, p)
				continue
			}
			return err
		}
	}

	return nil
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Paths returns all paths in the mock filesystem in sorted order
func (mfs *MockFileSystem) Paths() []string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	paths := make([]string, 0, len(mfs.files))
	for p := range mfs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
