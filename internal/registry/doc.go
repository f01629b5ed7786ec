// Package registry provides the central "glue" for the node type system.
//
// The Registry maps a (context, type name) pair to a NodeType: the factory
// producing the Kind that computes the node, its IO declaration and its
// parameter specs. Contexts group the types that may live together under a
// parent, e.g. "value" nodes under the scene root and "geometry" nodes
// inside a geo node.
//
// During application startup, the registry is populated by Modules and then
// validated so that broken declarations surface before any scene is built.
package registry
