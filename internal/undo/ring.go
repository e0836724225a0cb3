// Package undo keeps a bounded history of reversible document commands.
package undo

// Command is a reversible mutation.
type Command interface {
	Name() string
	Undo() error
	Redo() error
}

// Ring is a fixed capacity undo/redo history. Pushing past capacity drops
// the oldest command; pushing after an undo discards the redo tail.
type Ring struct {
	capacity int
	entries  []Command

	// cursor is the number of applied commands in entries
	cursor int
}

// NewRing creates a history holding at most capacity commands. A
// non-positive capacity disables history.
func NewRing(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{capacity: capacity}
}

// Push records an applied command.
func (r *Ring) Push(cmd Command) {
	if r.capacity == 0 || cmd == nil {
		return
	}
	r.entries = append(r.entries[:r.cursor], cmd)
	if len(r.entries) > r.capacity {
		r.entries = append([]Command(nil), r.entries[len(r.entries)-r.capacity:]...)
	}
	r.cursor = len(r.entries)
}

// Undo reverts the most recent applied command. It returns false when
// there is nothing to undo. A failing command stays applied.
func (r *Ring) Undo() (bool, error) {
	if r.cursor == 0 {
		return false, nil
	}
	if err := r.entries[r.cursor-1].Undo(); err != nil {
		return false, err
	}
	r.cursor--
	return true, nil
}

// Redo re-applies the most recently undone command.
func (r *Ring) Redo() (bool, error) {
	if r.cursor == len(r.entries) {
		return false, nil
	}
	if err := r.entries[r.cursor].Redo(); err != nil {
		return false, err
	}
	r.cursor++
	return true, nil
}

// CanUndo reports whether Undo would do anything.
func (r *Ring) CanUndo() bool { return r.cursor > 0 }

// CanRedo reports whether Redo would do anything.
func (r *Ring) CanRedo() bool { return r.cursor < len(r.entries) }

// Clear drops all history.
func (r *Ring) Clear() {
	r.entries = nil
	r.cursor = 0
}

// Len returns the number of recorded commands, applied or undone.
func (r *Ring) Len() int { return len(r.entries) }

// Capacity returns the configured capacity.
func (r *Ring) Capacity() int { return r.capacity }

// Func adapts a pair of closures to Command.
type Func struct {
	Label  string
	OnUndo func() error
	OnRedo func() error
}

func (f Func) Name() string { return f.Label }
func (f Func) Undo() error  { return f.OnUndo() }
func (f Func) Redo() error  { return f.OnRedo() }
