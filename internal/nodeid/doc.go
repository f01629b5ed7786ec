// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for node
paths within a scene tree.

The format is a slash-separated sequence of segments. Absolute paths start
at the scene root, e.g. `/geo1/box1`; relative paths are resolved against a
base node and may use `.` and `..`, e.g. `../const1`. The last segment may
carry an index, e.g. `../box1[1]`, which callers use to select an output
connection point.

This package enforces the identifier schema and centralizes all
formatting and parsing logic for paths.
*/
package nodeid
