// Package scene is the node graph engine: a tree of typed nodes wired into a
// dataflow graph and cooked lazily.
//
// A Scene owns every node in an id-ordered arena. Nodes hold parameters,
// input wiring to sibling nodes and flags; the dependency graph (package dag)
// records which vertex reads which. Mutations mark everything downstream
// dirty at once, breadth-first, under the scene's write lock. Reading a
// node's output through Compute recomputes only what is stale, cooking
// upstream inputs and resolving parameter expressions on the way.
//
// Any goroutine may call into a scene. Structure is guarded by a single
// RWMutex, compute steps run without it, and each node has at most one cook
// in flight; concurrent callers share its result.
package scene
