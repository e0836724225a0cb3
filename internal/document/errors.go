package document

import (
	"errors"
	"fmt"

	"github.com/jakoblorz/go-projectdoc/internal/attach"
	"github.com/jakoblorz/go-projectdoc/internal/models"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("document closed")

	// ErrNotLoaded is returned by operations that need a loaded document.
	ErrNotLoaded = attach.ErrNotLoaded

	// ErrInvalidState is returned when an operation is not valid in the
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid document state")

	// ErrNoPath is returned when saving a document that was never saved
	// or loaded without naming a path.
	ErrNoPath = errors.New("no file path")
)

func invalidState(op string, state models.State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, state)
}
