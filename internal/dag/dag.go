package dag

import (
	"fmt"
	"slices"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new vertex with the given ID to the graph. If a vertex with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		deps:       make(map[string]int),
		dependents: make(map[string]int),
	}
	g.nodes[id] = n
	return n
}

// HasNode reports whether the vertex exists.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// RemoveNode deletes a vertex together with every edge touching it and
// returns the number of distinct edges removed. Removing a missing vertex is
// a no-op.
func (g *Graph) RemoveNode(id string) int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return 0
	}
	removed := 0
	for depID := range n.deps {
		delete(g.nodes[depID].dependents, id)
		removed++
	}
	for depID := range n.dependents {
		delete(g.nodes[depID].deps, id)
		removed++
	}
	delete(g.nodes, id)
	return removed
}

// AddEdge creates a directed edge from the `fromID` vertex to the `toID`
// vertex, meaning `toID` depends on `fromID`. Missing vertices are created.
// If the edge would close a cycle (including a self edge) a *CycleError is
// returned and the graph is left unchanged. Adding an existing edge again
// increments its reference count.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if fromID == toID {
		return &CycleError{From: fromID, To: toID, Path: []string{fromID, fromID}}
	}
	if path := g.pathLocked(toID, fromID); path != nil {
		return &CycleError{From: fromID, To: toID, Path: append([]string{fromID}, path...)}
	}

	fromNode := g.addNodeLocked(fromID)
	toNode := g.addNodeLocked(toID)
	toNode.deps[fromID]++
	fromNode.dependents[toID]++
	return nil
}

// RemoveEdge drops one reference of the edge from `fromID` to `toID`. The
// edge disappears when its last reference is removed.
func (g *Graph) RemoveEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source %w: %s", ErrNodeNotFound, fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination %w: %s", ErrNodeNotFound, toID)
	}
	if fromNode.dependents[toID] == 0 {
		return fmt.Errorf("edge not found: %s -> %s", fromID, toID)
	}

	fromNode.dependents[toID]--
	toNode.deps[fromID]--
	if fromNode.dependents[toID] == 0 {
		delete(fromNode.dependents, toID)
		delete(toNode.deps, fromID)
	}
	return nil
}

// Multiplicity returns how many references the edge from `fromID` to `toID`
// currently has.
func (g *Graph) Multiplicity(fromID, toID string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if n, ok := g.nodes[fromID]; ok {
		return n.dependents[toID]
	}
	return 0
}

// Dependencies returns the sorted IDs of the vertices the given vertex
// depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs of the vertices depending on the given
// vertex.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return sortedKeys(n.dependents), nil
}

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	count := 0
	for _, n := range g.nodes {
		count += len(n.dependents)
	}
	return count
}

// EdgesTouching returns the number of distinct edges that start or end at
// the vertex.
func (g *Graph) EdgesTouching(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return 0
	}
	return len(n.deps) + len(n.dependents)
}

// Nodes returns the sorted IDs of all vertices.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reachable reports whether `toID` can be reached from `fromID` by following
// edges forward.
func (g *Graph) Reachable(fromID, toID string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.pathLocked(fromID, toID) != nil
}

// pathLocked returns a forward path from -> ... -> to, or nil.
func (g *Graph) pathLocked(fromID, toID string) []string {
	if _, ok := g.nodes[fromID]; !ok {
		return nil
	}
	parent := map[string]string{fromID: ""}
	stack := []string{fromID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == toID {
			path := []string{id}
			for p := parent[id]; p != ""; p = parent[p] {
				path = append(path, p)
			}
			slices.Reverse(path)
			return path
		}
		for next := range g.nodes[id].dependents {
			if _, seen := parent[next]; !seen {
				parent[next] = id
				stack = append(stack, next)
			}
		}
	}
	return nil
}

// Propagate walks the graph breadth-first from the start vertices, calling
// visit for every vertex reached. When visit returns false the walk does not
// continue past that vertex. Each vertex is visited at most once per call.
// Propagate returns the number of visits. visit must not modify the graph.
func (g *Graph) Propagate(starts []string, visit func(id string) bool) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]struct{}, len(starts))
	queue := make([]string, 0, len(starts))
	for _, id := range starts {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, id)
	}

	visits := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visits++
		if !visit(id) {
			continue
		}
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, next := range sortedKeys(n.dependents) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return visits
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// temporary: currently in the recursion stack.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, depID := range sortedKeys(n.dependents) {
			if err := visit(g.nodes[depID]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
