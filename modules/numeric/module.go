// Package numeric provides the scalar and vector arithmetic node types:
// const, add, multiply and sum.
package numeric

import (
	"context"
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// MaxSumInputs is the number of input slots of a sum node.
const MaxSumInputs = 8

// Module implements the registry.Module interface for this package.
type Module struct{}

// CookConst outputs the "value" parameter.
func CookConst(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	return cc.Param(ctx, "value")
}

// CookAdd adds the "addend" parameter to its input.
func CookAdd(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	return binary(ctx, cc, "addend", func(a, b cty.Value) cty.Value { return a.Add(b) })
}

// CookMultiply multiplies its input by the "factor" parameter.
func CookMultiply(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	return binary(ctx, cc, "factor", func(a, b cty.Value) cty.Value { return a.Multiply(b) })
}

func binary(ctx context.Context, cc registry.CookContext, operand string, op func(a, b cty.Value) cty.Value) (cty.Value, error) {
	in, err := cc.Input(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	if in.IsNull() {
		return cty.NilVal, fmt.Errorf("input 0 is null")
	}
	v, err := cc.Param(ctx, operand)
	if err != nil {
		return cty.NilVal, err
	}
	return op(in, v), nil
}

// SumType is the slot and output type of a sum node: the type of its first
// wired input when that is numeric, float otherwise.
func SumType(_ int, wired []connection.Type) connection.Type {
	for _, t := range wired {
		if t == connection.TypeNone {
			continue
		}
		if summable(t) {
			return t
		}
		break
	}
	return connection.TypeFloat
}

func summable(t connection.Type) bool {
	switch t {
	case connection.TypeFloat, connection.TypeInt, connection.TypeVec2, connection.TypeVec3, connection.TypeVec4:
		return true
	default:
		return false
	}
}

// CookSum adds every wired input. Vectors are added per component.
func CookSum(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	t := cc.OutputType(0)
	acc := make([]float64, max(t.Components(), 1))

	for i := range cc.NumInputs() {
		if !cc.InputConnected(i) {
			continue
		}
		v, err := cc.Input(ctx, i)
		if err != nil {
			return cty.NilVal, err
		}
		if t.Components() == 0 {
			f, err := connection.Float(v)
			if err != nil {
				return cty.NilVal, fmt.Errorf("input %d: %w", i, err)
			}
			acc[0] += f
			continue
		}
		comps, err := connection.Floats(v, t)
		if err != nil {
			return cty.NilVal, fmt.Errorf("input %d: %w", i, err)
		}
		for c := range comps {
			acc[c] += comps[c]
		}
	}

	if t.Components() == 0 {
		return cty.NumberFloatVal(acc[0]), nil
	}
	return connection.FloatsVal(acc...), nil
}

// Register registers the node types with the registry.
func (m *Module) Register(r *registry.Registry) {
	floatOut := []connection.Point{connection.NewOutput("out", connection.TypeFloat)}
	floatIn := []connection.Point{connection.NewInput("in", connection.TypeFloat)}

	r.RegisterNodeType("const", func() registry.Kind { return registry.KindFunc(CookConst) }, registry.TypeOptions{
		Description: "Outputs a constant number.",
		IO:          connection.Declaration{Outputs: floatOut},
		Params:      []param.Spec{param.Float("value", "0").Describe("The number to output.")},
	})
	r.RegisterNodeType("add", func() registry.Kind { return registry.KindFunc(CookAdd) }, registry.TypeOptions{
		Description: "Adds a number to its input.",
		IO:          connection.Declaration{Inputs: floatIn, MinInputs: 1, Outputs: floatOut},
		Params:      []param.Spec{param.Float("addend", "0")},
	})
	r.RegisterNodeType("multiply", func() registry.Kind { return registry.KindFunc(CookMultiply) }, registry.TypeOptions{
		Description: "Multiplies its input by a factor.",
		IO:          connection.Declaration{Inputs: floatIn, MinInputs: 1, Outputs: floatOut},
		Params:      []param.Spec{param.Float("factor", "1")},
	})
	r.RegisterNodeType("sum", func() registry.Kind { return registry.KindFunc(CookSum) }, registry.TypeOptions{
		Description: "Adds all of its inputs. Every input has the type of the first one.",
		IO: connection.Declaration{
			Inputs:     []connection.Point{connection.NewInput("in", connection.TypeFloat)},
			MinInputs:  1,
			MaxInputs:  MaxSumInputs,
			Outputs:    floatOut,
			InputType:  SumType,
			OutputType: SumType,
		},
	})
}
