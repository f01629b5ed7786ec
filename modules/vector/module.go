// Package vector provides the vec3 and length node types.
package vector

import (
	"context"
	"math"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// CookVec3 outputs the "value" parameter.
func CookVec3(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	return cc.Param(ctx, "value")
}

// CookLength outputs the euclidean length of its input.
func CookLength(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	in, err := cc.Input(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	comps, err := connection.Floats(in, connection.TypeVec3)
	if err != nil {
		return cty.NilVal, err
	}
	sq := 0.0
	for _, c := range comps {
		sq += c * c
	}
	return cty.NumberFloatVal(math.Sqrt(sq)), nil
}

// Register registers the node types with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType("vec3", func() registry.Kind { return registry.KindFunc(CookVec3) }, registry.TypeOptions{
		Description: "Outputs a constant vector.",
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("out", connection.TypeVec3)},
		},
		Params: []param.Spec{param.Vec3("value", "0")},
	})
	r.RegisterNodeType("length", func() registry.Kind { return registry.KindFunc(CookLength) }, registry.TypeOptions{
		Description: "Outputs the length of a vector.",
		IO: connection.Declaration{
			Inputs:    []connection.Point{connection.NewInput("in", connection.TypeVec3)},
			MinInputs: 1,
			Outputs:   []connection.Point{connection.NewOutput("out", connection.TypeFloat)},
		},
	})
}
