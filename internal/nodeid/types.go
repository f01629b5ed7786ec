// internal/nodeid/types.go
package nodeid

import "strconv"

// PathSegment represents a single component of a path, e.g., `name[index]`.
type PathSegment struct {
	Name  string
	Index int // -1 indicates no index is present.
}

// NewPathSegment creates a new path segment without an index.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name, Index: -1}
}

// NewPathSegmentWithIndex creates a new path segment that includes an index.
func NewPathSegmentWithIndex(name string, index int) PathSegment {
	return PathSegment{Name: name, Index: index}
}

// HasIndex returns true if the path segment has an explicit index.
func (ps PathSegment) HasIndex() bool {
	return ps.Index != -1
}

// isNavigation reports whether the segment is `.` or `..`.
func (ps PathSegment) isNavigation() bool {
	return ps.Name == "." || ps.Name == ".."
}

// Address is the structured representation of a node path.
type Address struct {
	// Absolute is true when the path starts at the scene root.
	Absolute bool
	Path     []PathSegment
}

// Root returns the absolute address of the scene root.
func Root() *Address {
	return &Address{Absolute: true}
}

// ID is the scene-unique identity of a node. IDs are assigned in increasing
// order and never reused within a scene.
type ID uint64

// String returns the dependency graph vertex name of the node, e.g. "n12".
func (id ID) String() string {
	return "n" + strconv.FormatUint(uint64(id), 10)
}

// ParamVertex returns the dependency graph vertex name of one of the node's
// parameters, e.g. "n12:size".
func (id ID) ParamVertex(param string) string {
	return id.String() + ":" + param
}
