// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentRegex is used to parse a single segment of a path, e.g., `name` or `name[1]`.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(?:\[(\d+)\])?$`)

// nameRegex restricts node names to identifiers that can also be used as bare
// references inside expressions.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidName reports whether name can be used as a node or parameter name.
func ValidName(name string) bool {
	return nameRegex.MatchString(name)
}

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "." || name == ".." {
		return true
	}
	return ValidName(name)
}

// Parse creates a new Address struct by parsing its canonical string representation.
func Parse(rawPath string) (*Address, error) {
	if rawPath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	addr := &Address{}
	rest := rawPath
	if strings.HasPrefix(rest, "/") {
		addr.Absolute = true
		rest = strings.TrimPrefix(rest, "/")
		if rest == "" {
			return addr, nil
		}
	}

	for _, segmentStr := range strings.Split(rest, "/") {
		if segmentStr == "" {
			return nil, fmt.Errorf("path %q contains empty segment", rawPath)
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}

		name := matches[1]
		if !isValidSegmentName(name) {
			return nil, fmt.Errorf("invalid segment name: %q", name)
		}

		segment := NewPathSegment(name)
		if len(matches) > 2 && matches[2] != "" {
			if segment.isNavigation() {
				return nil, fmt.Errorf("navigation segment %q cannot carry an index", segmentStr)
			}
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				// Unreachable due to regex `\d+`
				return nil, fmt.Errorf("internal error parsing index: %w", err)
			}
			segment.Index = index
		}
		addr.Path = append(addr.Path, segment)
	}

	for i, segment := range addr.Path[:len(addr.Path)-1] {
		if segment.HasIndex() {
			return nil, fmt.Errorf("only the last segment may carry an index, found one at position %d in %q", i, rawPath)
		}
	}

	return addr, nil
}
