package numeric_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/vk/cookgrid/modules/numeric"
	"github.com/vk/cookgrid/modules/vector"
)

func TestConstIntoAdd(t *testing.T) {
	h := testutil.NewHarness(t, &numeric.Module{})
	c := h.Create(t, "const", "c")
	add := h.Create(t, "add", "add")
	h.Set(t, c, "value", "5")
	h.Set(t, add, "addend", "3")
	h.Wire(t, add, 0, c)

	v, err := add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 8, v)

	h.Set(t, c, "value", "10")
	v, err = add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 13, v)
}

func TestMultiply(t *testing.T) {
	h := testutil.NewHarness(t, &numeric.Module{})
	c := h.Create(t, "const", "c")
	m := h.Create(t, "multiply", "m")
	h.Set(t, c, "value", "4")
	h.Set(t, m, "factor", "c / 2")
	h.Wire(t, m, 0, c)

	v, err := m.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 8, v)
}

func TestSum_Scalars(t *testing.T) {
	h := testutil.NewHarness(t, &numeric.Module{})
	sum := h.Create(t, "sum", "sum")
	for i, value := range []string{"1", "2", "3.5"} {
		c := h.Create(t, "const", "")
		h.Set(t, c, "value", value)
		h.Wire(t, sum, i, c)
	}

	v, err := sum.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 6.5, v)

	points := sum.NamedInputConnectionPoints()
	require.Len(t, points, 4, "a free slot follows the wired ones")
}

func TestSum_FollowsFirstInputType(t *testing.T) {
	h := testutil.NewHarness(t, &numeric.Module{}, &vector.Module{})
	a := h.Create(t, "vec3", "a")
	b := h.Create(t, "vec3", "b")
	c := h.Create(t, "const", "c")
	sum := h.Create(t, "sum", "sum")
	h.Set(t, a, "value", "[1, 2, 3]")
	h.Set(t, b, "value", "[10, 20, 30]")
	h.Set(t, c, "value", "100")
	h.Wire(t, sum, 0, a)
	h.Wire(t, sum, 1, b)
	h.Wire(t, sum, 2, c)

	require.Equal(t, connection.TypeVec3, sum.NamedOutputConnectionPoints()[0].Type)
	v, err := sum.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireValue(t, connection.FloatsVal(111, 122, 133), v)

	// A float in the first slot would make the sum a float, which the
	// vec3 wired into slot 1 cannot feed.
	var mismatch *connection.TypeMismatchError
	require.ErrorAs(t, sum.SetInput(h.Ctx, 0, c, 0), &mismatch)
	require.Equal(t, "/sum", mismatch.Node)

	// Consumers are checked against the output type the sum would get.
	other := h.Create(t, "sum", "other")
	add := h.Create(t, "add", "add")
	h.Wire(t, other, 0, c)
	h.Wire(t, add, 0, other)
	require.ErrorAs(t, other.SetInput(h.Ctx, 0, a, 0), &mismatch)
	require.Equal(t, "/add", mismatch.Node)
}

func TestAdd_RequiresInput(t *testing.T) {
	h := testutil.NewHarness(t, &numeric.Module{})
	add := h.Create(t, "add", "add")

	_, err := add.Compute(h.Ctx)
	var card *connection.CardinalityError
	require.ErrorAs(t, err, &card)
}
