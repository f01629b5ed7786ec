package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeDisposed is returned by operations on a disposed node, and by a
	// cook whose node was disposed while it ran.
	ErrNodeDisposed = errors.New("node is disposed")
	// ErrStructureChanged is returned by ApplyParams when the document does
	// not describe the scene's current structure.
	ErrStructureChanged = errors.New("scene structure changed")
	// ErrNotSibling is returned when wiring nodes with different parents.
	ErrNotSibling = errors.New("nodes are not siblings")
	// ErrUnknownParam is returned for a parameter name the node lacks.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrNodeNotFound is returned when a path names no node.
	ErrNodeNotFound = errors.New("node not found")
)

// DuplicateNameError is returned when a name is already taken by a sibling.
type DuplicateNameError struct {
	Parent string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s already has a child named %q", e.Parent, e.Name)
}

// InvalidNameError is returned for names that cannot be used in paths and
// expressions.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid node name %q: %s", e.Name, e.Reason)
}

// ComputeError is stored on a node whose cook failed and returned to every
// caller of Compute on it. Err is the cause, which may itself be the
// ComputeError of an upstream node.
type ComputeError struct {
	Node string
	Type string
	Err  error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("cook %s (%s): %v", e.Node, e.Type, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// InvalidStateError is returned when a cook asks for the value of a node or
// parameter that is already being computed further up the same call chain.
type InvalidStateError struct {
	Node   string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Node, e.Reason)
}

// UnresolvedReferenceError is returned when an expression names something
// that does not exist.
type UnresolvedReferenceError struct {
	Node      string
	Reference string
	Err       error
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cannot resolve %s: %v", e.Node, e.Reference, e.Err)
	}
	return fmt.Sprintf("%s: cannot resolve %s", e.Node, e.Reference)
}

func (e *UnresolvedReferenceError) Unwrap() error { return e.Err }
