package attach

import "errors"

var (
	// ErrNotLoaded is returned when attaching to a document that is not loaded.
	ErrNotLoaded = errors.New("document is not loaded")

	// ErrNoDataset signals a loaded document without a working dataset. It
	// is an invariant violation and is raised as a panic.
	ErrNoDataset = errors.New("document has no working dataset")
)
