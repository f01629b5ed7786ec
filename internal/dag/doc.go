// Package dag holds the dependency graph of a scene. Vertices are string ids
// (nodes and node parameters); a directed edge runs from a producer to a
// consumer that reads it. The graph rejects any edge that would close a
// cycle, counts duplicate edges, and drives forward dirty propagation.
package dag
