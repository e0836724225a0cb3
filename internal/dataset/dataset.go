// Package dataset defines the working dataset collaborator: the per-document
// cache that resolves identifiers and tracks registered sources.
package dataset

import (
	"context"
	"errors"
)

var (
	// ErrNotRegistered is returned when unregistering an unknown id.
	ErrNotRegistered = errors.New("not registered")

	// ErrClosed is returned by a dataset after Close.
	ErrClosed = errors.New("working dataset closed")
)

// WorkingDataset is exclusively owned by the document that created it.
type WorkingDataset interface {
	// Register makes id known to the dataset. provenance names where it
	// came from (a loader type or "item"); lower priorities resolve first.
	Register(id, provenance string, priority int) error

	// Unregister forgets id.
	Unregister(id string) error

	// ResolveBatch maps legacy identifiers to canonical ones in a single
	// round trip. Identifiers that cannot be resolved are omitted.
	ResolveBatch(ctx context.Context, ids []string) (map[string]string, error)

	// ResetCachedLookups drops memoized resolutions.
	ResetCachedLookups()
}

// Factory creates a fresh dataset for one load. A dataset that also
// implements io.Closer is closed when the document unloads.
type Factory func() (WorkingDataset, error)
