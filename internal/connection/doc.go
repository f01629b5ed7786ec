// Package connection defines the typed input and output slots ("connection
// points") used to wire nodes together, the compatibility rules between their
// types, and the per-node-type IO declarations that decide how many inputs a
// node accepts and what each slot expects.
//
// Values flowing through connection points are cty values. Every Type maps
// to a cty type constraint, which lets the cook controller check that a
// node kind produced what it declared and convert values between compatible
// slot types.
package connection
