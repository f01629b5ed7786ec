package expr

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Resolver supplies the values an expression reads. Implementations cook or
// resolve whatever is needed and may block.
type Resolver interface {
	// Param returns a parameter of the node owning the expression.
	Param(ctx context.Context, name string) (cty.Value, error)
	// Sibling returns the cooked output of a sibling node.
	Sibling(ctx context.Context, name string) (cty.Value, error)
	// ParamAt returns the parameter at a node path, last segment included.
	ParamAt(ctx context.Context, path string) (cty.Value, error)
	// OutputAt returns an output of the node at a path, "path[i]" selects
	// output i.
	OutputAt(ctx context.Context, path string) (cty.Value, error)
	// Input returns the value arriving at an input slot of the owning node.
	Input(ctx context.Context, index int) (cty.Value, error)
}

// Evaluate computes the value of the expression, asking r for everything it
// references. An error returned by r is passed through unchanged so callers
// can inspect it with errors.As.
func (e *Expression) Evaluate(ctx context.Context, r Resolver) (cty.Value, error) {
	var resolveErr error
	capture := func(err error) error {
		if resolveErr == nil {
			resolveErr = err
		}
		return err
	}

	params := make(map[string]cty.Value)
	vars := make(map[string]cty.Value)
	for _, ref := range e.refs {
		switch ref.Kind {
		case RefParam:
			if _, done := params[ref.Name]; done {
				continue
			}
			v, err := r.Param(ctx, ref.Name)
			if err != nil {
				return cty.NilVal, err
			}
			params[ref.Name] = v
		case RefSibling:
			if _, done := vars[ref.Name]; done {
				continue
			}
			v, err := r.Sibling(ctx, ref.Name)
			if err != nil {
				return cty.NilVal, err
			}
			vars[ref.Name] = v
		}
	}
	if len(params) > 0 {
		vars[ParamRoot] = cty.ObjectVal(params)
	}

	funcs := make(map[string]function.Function, len(pureFunctions)+3)
	for name, fn := range pureFunctions {
		funcs[name] = fn
	}
	funcs[FuncParamAt] = pathFunction(func(path string) (cty.Value, error) {
		v, err := r.ParamAt(ctx, path)
		if err != nil {
			return cty.NilVal, capture(err)
		}
		return v, nil
	})
	funcs[FuncOutput] = pathFunction(func(path string) (cty.Value, error) {
		v, err := r.OutputAt(ctx, path)
		if err != nil {
			return cty.NilVal, capture(err)
		}
		return v, nil
	})
	funcs[FuncInput] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "index", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			idx, acc := args[0].AsBigFloat().Int64()
			if acc != 0 || idx < 0 {
				return cty.NilVal, fmt.Errorf("input index must be a non-negative whole number")
			}
			v, err := r.Input(ctx, int(idx))
			if err != nil {
				return cty.NilVal, capture(err)
			}
			return v, nil
		},
	})

	evalCtx := &hcl.EvalContext{Variables: vars, Functions: funcs}
	v, diags := e.expr.Value(evalCtx)
	if diags.HasErrors() {
		if resolveErr != nil {
			return cty.NilVal, resolveErr
		}
		return cty.NilVal, errors.New(diags.Error())
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%q did not produce a known value", e.source)
	}
	return v, nil
}

func pathFunction(lookup func(path string) (cty.Value, error)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "path", Type: cty.String}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return lookup(args[0].AsString())
		},
	})
}
