// internal/nodeid/address.go
package nodeid

import (
	"fmt"
	"reflect"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	if a.Absolute {
		sb.WriteRune('/')
	}
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('/')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}
	if sb.Len() == 0 {
		return "."
	}

	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.Absolute != other.Absolute || len(a.Path) != len(other.Path) {
		return false
	}
	return len(a.Path) == 0 || reflect.DeepEqual(a.Path, other.Path)
}

// IsRoot reports whether the address points at the scene root.
func (a *Address) IsRoot() bool {
	return a != nil && a.Absolute && len(a.Path) == 0
}

// Last returns the final segment of the path. The root has no segments and
// returns a zero-named segment.
func (a *Address) Last() PathSegment {
	if a == nil || len(a.Path) == 0 {
		return NewPathSegment("")
	}
	return a.Path[len(a.Path)-1]
}

// Parent returns the address without its final segment.
func (a *Address) Parent() *Address {
	if a == nil || len(a.Path) == 0 {
		return a
	}
	return &Address{Absolute: a.Absolute, Path: append([]PathSegment(nil), a.Path[:len(a.Path)-1]...)}
}

// Child returns a new address with name appended.
func (a *Address) Child(name string) *Address {
	path := make([]PathSegment, 0, len(a.Path)+1)
	path = append(path, a.Path...)
	path = append(path, NewPathSegment(name))
	return &Address{Absolute: a.Absolute, Path: path}
}

// WithoutIndex returns a copy of the address whose last segment has no index,
// together with the index that was removed (-1 if none).
func (a *Address) WithoutIndex() (*Address, int) {
	if a == nil || len(a.Path) == 0 {
		return a, -1
	}
	path := append([]PathSegment(nil), a.Path...)
	last := path[len(path)-1]
	path[len(path)-1] = NewPathSegment(last.Name)
	return &Address{Absolute: a.Absolute, Path: path}, last.Index
}

// Resolve interprets rel relative to the absolute address base and returns the
// resulting absolute, normalized address. `.` segments are dropped and `..`
// segments remove their predecessor.
func Resolve(base, rel *Address) (*Address, error) {
	if rel == nil {
		return nil, fmt.Errorf("cannot resolve a nil path")
	}

	var path []PathSegment
	if !rel.Absolute {
		if base == nil || !base.Absolute {
			return nil, fmt.Errorf("base path %q must be absolute", base.String())
		}
		path = append(path, base.Path...)
	}

	for _, segment := range rel.Path {
		switch segment.Name {
		case ".":
			continue
		case "..":
			if len(path) == 0 {
				return nil, fmt.Errorf("path %q escapes the scene root", rel.String())
			}
			path = path[:len(path)-1]
		default:
			path = append(path, segment)
		}
	}

	return &Address{Absolute: true, Path: path}, nil
}
