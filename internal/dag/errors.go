package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned when an operation names a vertex that is not
// in the graph.
var ErrNodeNotFound = errors.New("node not found")

// CycleError is returned when adding an edge would make the graph cyclic.
// Path lists the vertices of the cycle that would be closed, starting and
// ending at the edge's source.
type CycleError struct {
	From string
	To   string
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("edge %s -> %s would create a cycle", e.From, e.To)
	}
	return fmt.Sprintf("edge %s -> %s would create a cycle: %s", e.From, e.To, strings.Join(e.Path, " -> "))
}
