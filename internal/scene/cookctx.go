package scene

import (
	"context"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// cookContext is what a Kind sees while its node cooks.
type cookContext struct {
	scene *Scene
	node  *Node
	path  string
}

var _ registry.CookContext = (*cookContext)(nil)

func (c *cookContext) NodePath() string { return c.path }

func (c *cookContext) NumInputs() int {
	c.scene.mu.RLock()
	defer c.scene.mu.RUnlock()
	return len(c.node.inputs)
}

func (c *cookContext) InputConnected(index int) bool {
	c.scene.mu.RLock()
	defer c.scene.mu.RUnlock()
	return index >= 0 && index < len(c.node.inputs) && c.node.inputs[index].source != nil
}

func (c *cookContext) InputType(index int) connection.Type {
	c.scene.mu.RLock()
	defer c.scene.mu.RUnlock()
	return c.node.io.Declaration().ExpectedInputType(index, c.node.wiredTypesLocked())
}

func (c *cookContext) Input(ctx context.Context, index int) (cty.Value, error) {
	return c.scene.inputValue(ctx, c.node, index)
}

func (c *cookContext) OutputType(index int) connection.Type {
	c.scene.mu.RLock()
	defer c.scene.mu.RUnlock()
	return c.node.outputTypeLocked(index)
}

func (c *cookContext) Param(ctx context.Context, name string) (cty.Value, error) {
	return c.scene.resolveParam(ctx, c.node, name)
}

func (c *cookContext) DisplayChild(ctx context.Context) (cty.Value, bool, error) {
	c.scene.mu.RLock()
	child := c.node.displayChildLocked()
	c.scene.mu.RUnlock()

	if child == nil {
		return cty.NilVal, false, nil
	}
	v, err := c.scene.computeOutput(ctx, child, 0)
	if err != nil {
		return cty.NilVal, true, err
	}
	return v, true, nil
}
