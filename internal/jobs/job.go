// Package jobs runs background work on a bounded worker pool and routes
// each job's outcome back to its owner exactly once.
package jobs

import (
	"context"
	"fmt"
)

// Job is one unit of background work. It must poll tok at safe points and
// return ErrCancelled (or tok.Err()) once cancellation is observed.
type Job func(tok *Token) (any, error)

// Token carries a cooperative cancellation request into a job body.
type Token struct {
	ctx context.Context
}

// NewToken wraps ctx as a cancellation token.
func NewToken(ctx context.Context) *Token {
	return &Token{ctx: ctx}
}

// Cancelled reports whether cancellation was requested.
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

// Err returns ErrCancelled once cancellation was requested, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Context returns a context that is done once cancellation is requested.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Status is the lifecycle state of an Adapter.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
