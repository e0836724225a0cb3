package models

import "time"

// Folder groups content items and nested folders
type Folder struct {
	Title     string
	CreatedAt time.Time
	Folders   []*Folder
	Items     []*ContentItem
}

// NewFolder creates a new empty Folder
func NewFolder(title string, createdAt time.Time) *Folder {
	return &Folder{
		Title:     title,
		CreatedAt: createdAt,
	}
}

// Walk visits every item in the tree depth-first, folders in order.
// Returning false from fn stops the walk.
func (f *Folder) Walk(fn func(folder *Folder, item *ContentItem) bool) bool {
	if f == nil {
		return true
	}
	for _, item := range f.Items {
		if !fn(f, item) {
			return false
		}
	}
	for _, child := range f.Folders {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// AllItems returns every item in the tree in walk order
func (f *Folder) AllItems() []*ContentItem {
	var items []*ContentItem
	f.Walk(func(_ *Folder, item *ContentItem) bool {
		items = append(items, item)
		return true
	})
	return items
}

// FindFolder returns the first direct child folder with the given title
func (f *Folder) FindFolder(title string) *Folder {
	for _, child := range f.Folders {
		if child.Title == title {
			return child
		}
	}
	return nil
}

// EnsureFolder returns the child folder with the given title, creating it
// when none exists.
func (f *Folder) EnsureFolder(title string, now time.Time) *Folder {
	if existing := f.FindFolder(title); existing != nil {
		return existing
	}
	child := NewFolder(title, now)
	f.Folders = append(f.Folders, child)
	return child
}

// FolderOf returns the folder directly holding item, or nil
func (f *Folder) FolderOf(item *ContentItem) *Folder {
	var owner *Folder
	f.Walk(func(folder *Folder, it *ContentItem) bool {
		if it == item {
			owner = folder
			return false
		}
		return true
	})
	return owner
}

// Remove deletes item from wherever it lives in the tree
func (f *Folder) Remove(item *ContentItem) bool {
	for i, it := range f.Items {
		if it == item {
			f.Items = append(f.Items[:i], f.Items[i+1:]...)
			return true
		}
	}
	for _, child := range f.Folders {
		if child.Remove(item) {
			return true
		}
	}
	return false
}

// Labels returns the label usage index of the whole tree
func (f *Folder) Labels() map[string]int {
	used := make(map[string]int)
	f.Walk(func(_ *Folder, item *ContentItem) bool {
		used[item.Label]++
		return true
	})
	return used
}
