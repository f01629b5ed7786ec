// Package print provides the print node type, which logs the value flowing
// through it.
package print

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package. When Out
// is set every printed value is also written to it, one line per cook.
type Module struct {
	Out io.Writer
}

// Params are the parameters of a print node.
type Params struct {
	Label string `param:"label"`
}

// Format renders a value as compact JSON. Null renders as "null".
func Format(v cty.Value) (string, error) {
	b, err := connection.MarshalJSON(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Cook logs its input and passes it through.
func (m *Module) Cook(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p Params
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	in, err := cc.Input(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	text, err := Format(in)
	if err != nil {
		return cty.NilVal, fmt.Errorf("format input: %w", err)
	}
	label := p.Label
	if label == "" {
		label = cc.NodePath()
	}

	ctxlog.FromContext(ctx).Info("Printing input.", "node", cc.NodePath(), "label", label, "value", text)
	if m.Out != nil {
		if _, err := fmt.Fprintf(m.Out, "%s = %s\n", label, text); err != nil {
			return cty.NilVal, err
		}
	}
	return in, nil
}

func passthroughType(_ int, wired []connection.Type) connection.Type {
	if len(wired) > 0 && wired[0] != connection.TypeNone {
		return wired[0]
	}
	return connection.TypeAny
}

// Register registers the node type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType("print", func() registry.Kind { return registry.KindFunc(m.Cook) }, registry.TypeOptions{
		Description: "Logs its input and passes it through unchanged.",
		IO: connection.Declaration{
			Inputs:     []connection.Point{connection.NewInput("in", connection.TypeAny)},
			MinInputs:  1,
			Outputs:    []connection.Point{connection.NewOutput("out", connection.TypeAny)},
			OutputType: passthroughType,
		},
		Params:       []param.Spec{param.String("label", "").Describe("Printed before the value. Defaults to the node path.")},
		ParamsStruct: Params{},
	})
}
