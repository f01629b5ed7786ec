package testutil

import (
	"github.com/vk/cookgrid/internal/registry"
)

// FuncType is an ad-hoc node type backed by a function.
type FuncType struct {
	Name    string
	Options registry.TypeOptions
	Cook    registry.KindFunc
}

// FuncModule is a test helper for registering node types without writing a
// module.
type FuncModule []FuncType

// Register implements the registry.Module interface.
func (m FuncModule) Register(r *registry.Registry) {
	for _, ft := range m {
		cook := ft.Cook
		r.RegisterNodeType(ft.Name, func() registry.Kind { return cook }, ft.Options)
	}
}
