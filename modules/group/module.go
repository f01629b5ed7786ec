// Package group provides the group node type, a container of value nodes
// whose output is the output of its displayed child.
package group

import (
	"context"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// CookGroup outputs the value of the displayed child, or null.
func CookGroup(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	v, ok, err := cc.DisplayChild(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	if !ok {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return v, nil
}

// Register registers the node type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType("group", func() registry.Kind { return registry.KindFunc(CookGroup) }, registry.TypeOptions{
		ChildContext: registry.DefaultContext,
		Description:  "Hosts a value network and outputs its displayed node.",
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("out", connection.TypeAny)},
		},
	})
}
