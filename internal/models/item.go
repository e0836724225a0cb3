package models

import "github.com/jakoblorz/go-projectdoc/internal/ids"

// ContentItem is a single attachable unit of payload data in a document tree
type ContentItem struct {
	// ID is unique within the document and assigned on creation
	ID string

	// Label is the display name, unique across the entire tree
	Label string

	// Payload is the data carried by this item
	Payload *Payload

	// Enabled marks the item as attached
	Enabled bool

	// Extra holds out-of-band metadata
	Extra map[string]string
}

// NewContentItem creates a detached item with a fresh ID
func NewContentItem(label string, payload *Payload) *ContentItem {
	return &ContentItem{
		ID:      ids.NewItemID(),
		Label:   label,
		Payload: payload,
		Extra:   map[string]string{},
	}
}
