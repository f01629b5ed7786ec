package connection

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Direction tells inputs and outputs apart.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Point is a named, typed slot on a node.
type Point struct {
	Name      string
	Type      Type
	Direction Direction
	// Default is used by compute code when an optional input is unwired.
	// cty.NilVal means no default.
	Default cty.Value
}

// NewInput returns an input point with no default.
func NewInput(name string, t Type) Point {
	return Point{Name: name, Type: t, Direction: Input}
}

// NewOutput returns an output point.
func NewOutput(name string, t Type) Point {
	return Point{Name: name, Type: t, Direction: Output}
}

// WithDefault returns a copy of p carrying the given default value.
func (p Point) WithDefault(v cty.Value) Point {
	p.Default = v
	return p
}

func (p Point) String() string {
	return fmt.Sprintf("%s %s:%s", p.Direction, p.Name, p.Type)
}
