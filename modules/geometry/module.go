// Package geometry provides the geometry node types. box, transform and merge
// live in the geometry context; geo hosts them inside the value context.
package geometry

import (
	"context"
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Context is the registry context of geometry node types.
const Context = "geometry"

// MaxMergeInputs is the number of input slots of a merge node.
const MaxMergeInputs = 8

// Module implements the registry.Module interface for this package.
type Module struct{}

// BoxParams are the parameters of a box node.
type BoxParams struct {
	Size   []float64 `param:"size"`
	Center []float64 `param:"center"`
}

// TransformParams are the parameters of a transform node.
type TransformParams struct {
	Translate []float64 `param:"translate"`
	Scale     float64   `param:"scale"`
}

func vec(v []float64) [3]float64 {
	var out [3]float64
	copy(out[:], v)
	return out
}

// CookBox outputs the corners of a box.
func CookBox(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p BoxParams
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	return Box(vec(p.Size), vec(p.Center)).Value(), nil
}

// CookTransform scales and translates its input geometry.
func CookTransform(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p TransformParams
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	in, err := cc.Input(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	g, err := FromValue(in)
	if err != nil {
		return cty.NilVal, err
	}
	return g.Transform(p.Scale, vec(p.Translate)).Value(), nil
}

// CookMerge concatenates the points of every wired input in slot order.
func CookMerge(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var merged Geometry
	for i := range cc.NumInputs() {
		if !cc.InputConnected(i) {
			continue
		}
		in, err := cc.Input(ctx, i)
		if err != nil {
			return cty.NilVal, err
		}
		g, err := FromValue(in)
		if err != nil {
			return cty.NilVal, fmt.Errorf("input %d: %w", i, err)
		}
		merged.Points = append(merged.Points, g.Points...)
	}
	return merged.Value(), nil
}

// CookGeo outputs the geometry of its displayed child, or an empty one.
func CookGeo(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	v, ok, err := cc.DisplayChild(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	if !ok || v.IsNull() {
		return Geometry{}.Value(), nil
	}
	return v, nil
}

// Register registers the node types with the registry.
func (m *Module) Register(r *registry.Registry) {
	geoOut := []connection.Point{connection.NewOutput("geometry", connection.TypeGeometry)}
	geoIn := connection.NewInput("geometry", connection.TypeGeometry)

	r.RegisterNodeType("box", func() registry.Kind { return registry.KindFunc(CookBox) }, registry.TypeOptions{
		Context:     Context,
		Description: "Outputs the corners of an axis-aligned box.",
		IO:          connection.Declaration{Outputs: geoOut},
		Params: []param.Spec{
			param.Vec3("size", "1"),
			param.Vec3("center", "0"),
		},
		ParamsStruct: BoxParams{},
	})
	r.RegisterNodeType("transform", func() registry.Kind { return registry.KindFunc(CookTransform) }, registry.TypeOptions{
		Context:     Context,
		Description: "Scales and translates a geometry.",
		IO: connection.Declaration{
			Inputs:    []connection.Point{geoIn},
			MinInputs: 1,
			Outputs:   geoOut,
		},
		Params: []param.Spec{
			param.Vec3("translate", "0"),
			param.Float("scale", "1"),
		},
		ParamsStruct: TransformParams{},
	})
	r.RegisterNodeType("merge", func() registry.Kind { return registry.KindFunc(CookMerge) }, registry.TypeOptions{
		Context:     Context,
		Description: "Combines the points of its inputs.",
		IO: connection.Declaration{
			Inputs:    []connection.Point{geoIn},
			MinInputs: 1,
			MaxInputs: MaxMergeInputs,
			Outputs:   geoOut,
		},
	})
	r.RegisterNodeType("geo", func() registry.Kind { return registry.KindFunc(CookGeo) }, registry.TypeOptions{
		ChildContext: Context,
		Description:  "Hosts a geometry network and outputs its displayed node.",
		IO:           connection.Declaration{Outputs: geoOut},
	})
}
