package registry

import (
	"context"
	"errors"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/zclconf/go-cty/cty"
)

// ErrInputNotConnected is returned by CookContext.Input for an unwired slot
// without a default.
var ErrInputNotConnected = errors.New("input is not connected")

// Kind is the compute behaviour of a node. Cook must be a pure function of
// what it reads through the CookContext. Kinds with several outputs return
// an object keyed by output name.
type Kind interface {
	Cook(ctx context.Context, cc CookContext) (cty.Value, error)
}

// KindFunc adapts a function to the Kind interface.
type KindFunc func(ctx context.Context, cc CookContext) (cty.Value, error)

// Cook calls f.
func (f KindFunc) Cook(ctx context.Context, cc CookContext) (cty.Value, error) {
	return f(ctx, cc)
}

// CookContext is what a Kind can read while it cooks. Every read cooks or
// resolves what it needs first.
type CookContext interface {
	// NodePath is the absolute path of the cooking node.
	NodePath() string
	// NumInputs is the number of input slots up to the last wired one.
	NumInputs() int
	// InputConnected reports whether slot index is wired.
	InputConnected(index int) bool
	// InputType is the type currently expected at slot index.
	InputType(index int) connection.Type
	// Input cooks the upstream node of slot index and returns its value
	// converted to the slot type.
	Input(ctx context.Context, index int) (cty.Value, error)
	// OutputType is the current type of output index.
	OutputType(index int) connection.Type
	// Param resolves a parameter of the cooking node.
	Param(ctx context.Context, name string) (cty.Value, error)
	// DisplayChild cooks the displayed child. ok is false when no child is
	// displayed.
	DisplayChild(ctx context.Context) (v cty.Value, ok bool, err error)
}
