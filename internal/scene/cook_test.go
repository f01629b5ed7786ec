package scene_test

import (
	"context"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/metrics"
	"github.com/vk/cookgrid/internal/nodestore"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestCompute_ConstIntoAdd(t *testing.T) {
	h := newHarness(t)
	c := h.Create(t, "const", "c")
	add := h.Create(t, "add", "add")
	h.Set(t, c, "value", "5")
	h.Set(t, add, "addend", "3")
	h.Wire(t, add, 0, c)

	v, err := add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 8, v)
	require.Equal(t, nodestore.StatusClean, add.Status(h.Ctx))

	h.Set(t, c, "value", "10")
	require.Equal(t, nodestore.StatusDirty, add.Status(h.Ctx), "upstream changes reach consumers")

	v, err = add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 13, v)
}

func TestCompute_CachesCleanNodes(t *testing.T) {
	h := newHarness(t)
	c := h.Create(t, "const", "c")
	add := h.Create(t, "add", "add")
	h.Wire(t, add, 0, c)

	for range 3 {
		_, err := add.Compute(h.Ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 1.0, promtest.ToFloat64(h.Scene.Metrics().Cooks.WithLabelValues("add", metrics.ResultOK)))
	require.Equal(t, 1.0, promtest.ToFloat64(h.Scene.Metrics().Cooks.WithLabelValues("const", metrics.ResultOK)))
}

func TestMarkDirty_AlreadyDirtyDoesNotTraverse(t *testing.T) {
	h := newHarness(t)
	c := h.Create(t, "const", "c")
	add := h.Create(t, "add", "add")
	h.Wire(t, add, 0, c)
	_, err := add.Compute(h.Ctx)
	require.NoError(t, err)

	m := h.Scene.Metrics()
	before := promtest.ToFloat64(m.DirtyTraversals)
	require.NoError(t, c.MarkDirty(h.Ctx))
	first := promtest.ToFloat64(m.DirtyTraversals) - before
	require.Equal(t, 2.0, first, "the node and its consumer are visited")

	before = promtest.ToFloat64(m.DirtyTraversals)
	marks := promtest.ToFloat64(m.DirtyMarks)
	require.NoError(t, c.MarkDirty(h.Ctx))
	require.Equal(t, 1.0, promtest.ToFloat64(m.DirtyTraversals)-before, "only the start vertex is visited")
	require.Equal(t, marks, promtest.ToFloat64(m.DirtyMarks))
}

func TestCompute_ConcurrentCallsShareOneCook(t *testing.T) {
	gated := testutil.NewGatedModule()
	h := newHarness(t, gated)
	g := h.Create(t, "gated", "g")

	var wg sync.WaitGroup
	results := make([]cty.Value, 2)
	errs := make([]error, 2)
	compute := func(i int) {
		defer wg.Done()
		results[i], errs[i] = g.Compute(h.Ctx)
	}

	wg.Add(2)
	go compute(0)
	<-gated.Started()
	go compute(1)
	callers := h.Scene.Metrics().CookCallers
	require.Eventually(t, func() bool { return promtest.ToFloat64(callers) == 2 },
		time.Second, time.Millisecond, "the second caller joins the cook in flight")
	gated.Release()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	testutil.RequireNumber(t, 1, results[0])
	testutil.RequireValue(t, results[0], results[1])
	require.Equal(t, 1, gated.Cooks())
	require.Zero(t, promtest.ToFloat64(callers))
}

func TestCompute_StaleCookIsNotCached(t *testing.T) {
	gated := testutil.NewGatedModule()
	h := newHarness(t, gated)
	g := h.Create(t, "gated", "g")

	done := make(chan error, 1)
	go func() {
		_, err := g.Compute(h.Ctx)
		done <- err
	}()
	<-gated.Started()
	require.Equal(t, nodestore.StatusCooking, g.Status(h.Ctx))

	h.Set(t, g, "value", "7")
	gated.Release()
	require.NoError(t, <-done)
	require.Equal(t, nodestore.StatusDirty, g.Status(h.Ctx))
	require.Equal(t, 1.0, promtest.ToFloat64(h.Scene.Metrics().Cooks.WithLabelValues("gated", metrics.ResultStale)))

	v, err := g.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 7, v)
	require.Equal(t, 2, gated.Cooks())
	require.Equal(t, nodestore.StatusClean, g.Status(h.Ctx))
}

func TestCompute_DisposedWhileCooking(t *testing.T) {
	gated := testutil.NewGatedModule()
	h := newHarness(t, gated)
	g := h.Create(t, "gated", "g")

	done := make(chan error, 1)
	go func() {
		_, err := g.Compute(h.Ctx)
		done <- err
	}()
	<-gated.Started()
	require.NoError(t, g.Dispose(h.Ctx))
	gated.Release()

	require.ErrorIs(t, <-done, scene.ErrNodeDisposed)
}

func TestCompute_Cancelled(t *testing.T) {
	gated := testutil.NewGatedModule()
	h := newHarness(t, gated)
	g := h.Create(t, "gated", "g")

	ctx, cancel := context.WithCancel(h.Ctx)
	done := make(chan error, 1)
	go func() {
		_, err := g.Compute(ctx)
		done <- err
	}()
	<-gated.Started()
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, nodestore.StatusDirty, g.Status(h.Ctx))
	require.NoError(t, g.Error(h.Ctx))
}

func TestCompute_ErrorsStayAtTheFailingNode(t *testing.T) {
	h := newHarness(t)
	f := h.Create(t, "fail", "f")
	add := h.Create(t, "add", "add")
	other := h.Create(t, "const", "other")
	h.Wire(t, add, 0, f)

	_, err := add.Compute(h.Ctx)
	var cerr *scene.ComputeError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "/add", cerr.Node)
	require.ErrorContains(t, err, "boom")

	require.Equal(t, nodestore.StatusErrored, f.Status(h.Ctx))
	var upstream *scene.ComputeError
	require.ErrorAs(t, f.Error(h.Ctx), &upstream)
	require.Equal(t, "/f", upstream.Node)
	require.Equal(t, "fail", upstream.Type)

	_, err = other.Compute(h.Ctx)
	require.NoError(t, err, "unrelated cooks are unaffected")

	h.Set(t, f, "fail", "false")
	require.Equal(t, nodestore.StatusDirty, add.Status(h.Ctx), "an upstream change re-arms errored nodes")
	v, err := add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 1, v)
	require.NoError(t, f.Error(h.Ctx))
}

func TestCompute_InputsAreCleanBeforeCooking(t *testing.T) {
	var source *scene.Node
	var seen nodestore.Status
	peek := testutil.FuncModule{{
		Name: "peek",
		Options: registry.TypeOptions{
			IO: connection.Declaration{
				Inputs:  []connection.Point{connection.NewInput("in", connection.TypeFloat)},
				Outputs: floatOut(),
			},
		},
		Cook: func(ctx context.Context, _ registry.CookContext) (cty.Value, error) {
			seen = source.Status(ctx)
			return cty.NumberIntVal(0), nil
		},
	}}
	h := newHarness(t, peek)
	source = h.Create(t, "const", "c")
	p := h.Create(t, "peek", "p")
	h.Wire(t, p, 0, source)

	_, err := p.Compute(h.Ctx)
	require.NoError(t, err)
	require.Equal(t, nodestore.StatusClean, seen, "the source cooked before the compute step ran")

	source = h.Create(t, "fail", "f")
	h.Wire(t, p, 0, source)
	_, err = p.Compute(h.Ctx)
	var cerr *scene.ComputeError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "/p", cerr.Node)
	require.ErrorContains(t, err, "input 0")
	require.Equal(t, nodestore.StatusErrored, p.Status(h.Ctx))
}

func TestCompute_MissingRequiredInput(t *testing.T) {
	h := newHarness(t)
	add := h.Create(t, "add", "add")

	_, err := add.Compute(h.Ctx)
	var card *connection.CardinalityError
	require.ErrorAs(t, err, &card)
	require.True(t, card.Missing)
	require.Equal(t, "/add", card.Node)
}

func TestCompute_ReentrantCookFails(t *testing.T) {
	var self *scene.Node
	loop := testutil.FuncModule{{
		Name: "loop",
		Cook: func(ctx context.Context, _ registry.CookContext) (cty.Value, error) {
			return self.Compute(ctx)
		},
	}}
	h := newHarness(t, loop)
	self = h.Create(t, "loop", "l")

	_, err := self.Compute(h.Ctx)
	var invalid *scene.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, nodestore.StatusErrored, self.Status(h.Ctx))
}

func TestCompute_PanicBecomesError(t *testing.T) {
	h := newHarness(t, testutil.FuncModule{{
		Name: "panics",
		Cook: func(context.Context, registry.CookContext) (cty.Value, error) {
			panic("kaboom")
		},
	}})
	n := h.Create(t, "panics", "p")

	_, err := n.Compute(h.Ctx)
	var cerr *scene.ComputeError
	require.ErrorAs(t, err, &cerr)
	require.ErrorContains(t, err, "kaboom")
}

func TestCompute_Bypass(t *testing.T) {
	h := newHarness(t)
	c := h.Create(t, "const", "c")
	add := h.Create(t, "add", "add")
	h.Set(t, c, "value", "5")
	h.Set(t, add, "addend", "100")
	h.Wire(t, add, 0, c)

	require.NoError(t, add.SetBypass(h.Ctx, true))
	v, err := add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 5, v)
	require.Equal(t, 1.0, promtest.ToFloat64(h.Scene.Metrics().Cooks.WithLabelValues("add", metrics.ResultBypassed)))

	require.NoError(t, add.SetBypass(h.Ctx, false))
	v, err = add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 105, v)
}

func TestCompute_MultipleOutputs(t *testing.T) {
	h := newHarness(t)
	s := h.Create(t, "split", "s")
	add := h.Create(t, "add", "add")
	require.NoError(t, add.SetInput(h.Ctx, 0, s, 1))

	v, err := add.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 2, v)

	y, err := s.ComputeOutput(h.Ctx, 1)
	require.NoError(t, err)
	testutil.RequireNumber(t, 2, y)
}

func TestCompute_DisplayChildFeedsParent(t *testing.T) {
	h := newHarness(t)
	g := h.Create(t, "group", "g")
	x, err := g.CreateChild(h.Ctx, "const", "x")
	require.NoError(t, err)
	y, err := g.CreateChild(h.Ctx, "const", "y")
	require.NoError(t, err)
	h.Set(t, x, "value", "1")
	h.Set(t, y, "value", "2")

	v, err := g.Compute(h.Ctx)
	require.NoError(t, err)
	require.True(t, v.IsNull(), "nothing is displayed yet")

	require.NoError(t, x.SetDisplay(h.Ctx, true))
	v, err = g.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 1, v)

	require.NoError(t, y.SetDisplay(h.Ctx, true))
	require.False(t, x.Display(), "only one child is displayed")
	v, err = g.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 2, v)

	h.Set(t, y, "value", "3")
	require.Equal(t, nodestore.StatusDirty, g.Status(h.Ctx))

	require.NoError(t, g.SetDisplay(h.Ctx, true))
	root, err := h.Scene.Root().Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 3, root)
}
