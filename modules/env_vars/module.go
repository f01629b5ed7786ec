package env_vars

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the parameters of an env_vars node.
type Params struct {
	Name     string `param:"name"`
	Default  string `param:"default"`
	Required bool   `param:"required"`
}

// CookEnvVar outputs the value of an environment variable.
func CookEnvVar(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p Params
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	if p.Name == "" {
		return cty.NilVal, fmt.Errorf("parameter 'name' is empty")
	}
	v, ok := os.LookupEnv(p.Name)
	if !ok {
		if p.Required {
			return cty.NilVal, fmt.Errorf("environment variable %s is not set", p.Name)
		}
		v = p.Default
	}
	return cty.StringVal(v), nil
}

// Register registers the node type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType("env_vars", func() registry.Kind { return registry.KindFunc(CookEnvVar) }, registry.TypeOptions{
		Description: "Outputs the value of an environment variable.",
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("value", connection.TypeString)},
		},
		Params: []param.Spec{
			param.String("name", ""),
			param.String("default", "").Describe("Used when the variable is not set."),
			param.Bool("required", "false"),
		},
		ParamsStruct: Params{},
	})
}
