package models

import "fmt"

// State represents the lifecycle state of a project document
type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateUnloading State = "unloading"
)

// IsValid checks if the state is one of the known lifecycle states
func (s State) IsValid() bool {
	switch s {
	case StateUnloaded, StateLoading, StateLoaded, StateUnloading:
		return true
	default:
		return false
	}
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// ParseState parses a string into a State
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid document state: %s", s)
	}
	return st, nil
}

// DocumentInfo is a point-in-time description of a document handed to
// extensions. It is a value so that callbacks never have to reach back
// into the document while it is in the middle of an operation.
type DocumentInfo struct {
	ID       string
	FilePath string
}
