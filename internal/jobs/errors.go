package jobs

import "errors"

var (
	// ErrCancelled is reported when a job observed a cancellation request.
	ErrCancelled = errors.New("job cancelled")

	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrAlreadyStarted is returned when starting an adapter twice.
	ErrAlreadyStarted = errors.New("job already started")
)
