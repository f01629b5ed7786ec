package dag

import "sync"

// Graph is a collection of vertices and their dependencies, kept acyclic.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all vertices in the graph, keyed by their unique ID.
	nodes map[string]*node
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the vertex.
	id string
	// deps maps each producer this vertex depends on to the number of edges
	// recorded between them.
	deps map[string]int
	// dependents maps each consumer of this vertex to the edge count.
	dependents map[string]int
}
