// Package param implements node parameters: typed values set from raw text
// that is either a literal or an expression over other parameters and node
// outputs.
//
// A Param caches its resolved value and only re-evaluates after it has been
// marked dirty. Vector and color parameters are compound: each component is
// a float Param of its own, and the compound's value is the tuple of its
// resolved components.
//
// Param does not know about the scene. The scene records dependency edges
// for the references a parameter reads and supplies an expr.Resolver when
// the parameter is resolved.
package param
