package group_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/vk/cookgrid/modules/group"
	"github.com/vk/cookgrid/modules/numeric"
)

func requireCooks(t *testing.T, h *testutil.Harness, n *scene.Node, want float64) {
	t.Helper()
	v, err := n.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, want, v)
}

func TestGroup_OutputsDisplayChild(t *testing.T) {
	h := testutil.NewHarness(t, &group.Module{}, &numeric.Module{})
	g := h.Create(t, "group", "g")

	v, err := g.Compute(h.Ctx)
	require.NoError(t, err)
	require.True(t, v.IsNull(), "a group without a display child outputs null")

	c, err := g.CreateChild(h.Ctx, "const", "c")
	require.NoError(t, err)
	add, err := g.CreateChild(h.Ctx, "add", "add")
	require.NoError(t, err)
	h.Set(t, c, "value", "2")
	h.Set(t, add, "addend", "3")
	h.Wire(t, add, 0, c)
	require.NoError(t, add.SetDisplay(h.Ctx, true))
	requireCooks(t, h, g, 5)

	require.NoError(t, c.SetDisplay(h.Ctx, true))
	requireCooks(t, h, g, 2)

	h.Set(t, c, "value", "7")
	requireCooks(t, h, g, 7)
}

func TestGroup_Nested(t *testing.T) {
	h := testutil.NewHarness(t, &group.Module{}, &numeric.Module{})
	outer := h.Create(t, "group", "outer")
	inner, err := outer.CreateChild(h.Ctx, "group", "inner")
	require.NoError(t, err)
	c, err := inner.CreateChild(h.Ctx, "const", "c")
	require.NoError(t, err)
	h.Set(t, c, "value", "4")
	require.NoError(t, c.SetDisplay(h.Ctx, true))
	require.NoError(t, inner.SetDisplay(h.Ctx, true))

	requireCooks(t, h, outer, 4)
	require.Equal(t, "/outer/inner/c", c.Path())
}
