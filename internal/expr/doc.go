// Package expr parses and evaluates parameter expressions.
//
// Expressions use HCL native syntax and evaluate over cty values. Besides the
// pure functions of cty's stdlib they understand these reference forms:
//
//	param.<name>          a sibling parameter on the same node
//	<node>[.<attr>...]    the cooked output of a sibling node
//	ch("<path>")          the parameter at a path, the last segment names it
//	output("<path>[i]")   output i of the node at a path
//	input(i)              the value arriving at input slot i
//
// Parsing extracts every reference so callers can record dependency edges
// before the expression is ever evaluated. Arguments of ch and output that
// are not literals can only be bound at evaluation time.
package expr
