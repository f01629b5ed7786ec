package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/metrics"
	"github.com/vk/cookgrid/internal/nodestore"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// chainLink records one vertex being computed on the current call chain.
type chainLink struct {
	vertex string
	next   *chainLink
}

type chainKey struct{}

// enterChain adds vertex to the call chain carried by ctx. It fails if the
// vertex is already being computed further up the chain.
func enterChain(ctx context.Context, vertex, path string) (context.Context, error) {
	head, _ := ctx.Value(chainKey{}).(*chainLink)
	for l := head; l != nil; l = l.next {
		if l.vertex == vertex {
			return ctx, &InvalidStateError{Node: path, Reason: fmt.Sprintf("%s is already being computed in this call chain", vertex)}
		}
	}
	return context.WithValue(ctx, chainKey{}, &chainLink{vertex: vertex, next: head}), nil
}

// Compute returns the node's output, cooking it and everything it depends
// on first when it is not clean. Concurrent calls on the same node share one
// cook. A failed cook returns a *ComputeError, which is also stored on the
// node until the next successful cook.
func (n *Node) Compute(ctx context.Context) (cty.Value, error) {
	return n.scene.compute(ctx, n)
}

// ComputeOutput computes the node and returns output index.
func (n *Node) ComputeOutput(ctx context.Context, index int) (cty.Value, error) {
	return n.scene.computeOutput(ctx, n, index)
}

func (s *Scene) compute(ctx context.Context, n *Node) (cty.Value, error) {
	s.mu.RLock()
	disposed, path := n.disposed, n.pathLocked()
	s.mu.RUnlock()
	if disposed {
		return cty.NilVal, ErrNodeDisposed
	}

	ctx, err := enterChain(ctx, n.vertex(), path)
	if err != nil {
		return cty.NilVal, err
	}
	if v, ok := s.cached(ctx, n); ok {
		return v, nil
	}

	s.metrics.CookCallers.Inc()
	defer s.metrics.CookCallers.Dec()
	res, err, _ := s.cooks.Do(n.vertex(), func() (any, error) {
		return s.cook(ctx, n)
	})
	if err != nil {
		return cty.NilVal, err
	}
	return res.(cty.Value), nil
}

// computeOutput computes n and selects one of its outputs.
func (s *Scene) computeOutput(ctx context.Context, n *Node, index int) (cty.Value, error) {
	v, err := s.compute(ctx, n)
	if err != nil {
		return cty.NilVal, err
	}
	outputs := n.typ.IO.Outputs
	if len(outputs) <= 1 {
		if index != 0 {
			return cty.NilVal, fmt.Errorf("%s has no output %d", n.Path(), index)
		}
		return v, nil
	}
	if index < 0 || index >= len(outputs) {
		return cty.NilVal, fmt.Errorf("%s has no output %d", n.Path(), index)
	}
	return v.GetAttr(outputs[index].Name), nil
}

func (s *Scene) cached(ctx context.Context, n *Node) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, _ := s.store.GetStatus(ctx, n.id); status != nodestore.StatusClean {
		return cty.NilVal, false
	}
	v, err := s.store.GetOutput(ctx, n.id)
	return v, err == nil
}

// cookPlan is the part of a node's state a cook reads under the lock.
type cookPlan struct {
	generation  uint64
	path        string
	bypass      bool
	cardinality error
	outputs     []connection.Point
	inputTypes  []connection.Type
}

// cook brings the wired inputs to clean, then runs the compute step with the
// node marked cooking.
func (s *Scene) cook(ctx context.Context, n *Node) (cty.Value, error) {
	inputsErr := s.cookInputs(ctx, n)

	s.mu.Lock()
	if n.disposed {
		s.mu.Unlock()
		return cty.NilVal, ErrNodeDisposed
	}
	if status, _ := s.store.GetStatus(ctx, n.id); status == nodestore.StatusClean {
		v, err := s.store.GetOutput(ctx, n.id)
		s.mu.Unlock()
		return v, err
	}
	plan := cookPlan{
		generation:  n.generation,
		path:        n.pathLocked(),
		bypass:      n.bypass,
		cardinality: n.annotate(n.io.ValidateCardinality()),
		outputs:     n.io.NamedOutputConnectionPoints(),
	}
	if plan.bypass && len(n.inputs) > 0 && n.inputs[0].source != nil {
		plan.inputTypes = []connection.Type{n.io.Declaration().ExpectedInputType(0, n.wiredTypesLocked())}
	}
	n.markInputParamsDirty()
	if inputsErr == nil {
		_ = s.store.SetStatus(ctx, n.id, nodestore.StatusCooking)
	}
	s.mu.Unlock()

	typeName := n.typ.Name
	logger := ctxlog.FromContext(ctx).With("node", plan.path, "type", typeName)

	v, err := cty.NilVal, inputsErr
	var elapsed time.Duration
	if err == nil {
		logger.Debug("Cooking node.")
		start := time.Now()
		v, err = s.run(ctx, n, plan)
		elapsed = time.Since(start)
		s.metrics.CookDuration.WithLabelValues(typeName).Observe(elapsed.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case n.disposed:
		s.metrics.Cooks.WithLabelValues(typeName, metrics.ResultCancelled).Inc()
		logger.Debug("Node disposed while cooking, result dropped.")
		return cty.NilVal, ErrNodeDisposed
	case n.generation != plan.generation:
		// The node was invalidated while cooking; markVertexLocked already
		// set it dirty, so the result is handed out but not cached.
		s.metrics.Cooks.WithLabelValues(typeName, metrics.ResultStale).Inc()
		logger.Debug("Node changed while cooking, result not cached.")
		if err != nil {
			return cty.NilVal, &ComputeError{Node: plan.path, Type: typeName, Err: err}
		}
		return v, nil
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		_ = s.store.SetStatus(ctx, n.id, nodestore.StatusDirty)
		s.metrics.Cooks.WithLabelValues(typeName, metrics.ResultCancelled).Inc()
		logger.Debug("Cook cancelled.", "error", err)
		return cty.NilVal, err
	case err != nil:
		cerr := &ComputeError{Node: plan.path, Type: typeName, Err: err}
		_ = s.store.SetError(ctx, n.id, cerr)
		_ = s.store.SetStatus(ctx, n.id, nodestore.StatusErrored)
		s.metrics.Cooks.WithLabelValues(typeName, metrics.ResultError).Inc()
		logger.Warn("Cook failed.", "error", err, "duration", elapsed)
		return cty.NilVal, cerr
	}

	_ = s.store.SetOutput(ctx, n.id, v)
	_ = s.store.SetError(ctx, n.id, nil)
	_ = s.store.SetStatus(ctx, n.id, nodestore.StatusClean)
	result := metrics.ResultOK
	if plan.bypass {
		result = metrics.ResultBypassed
	}
	s.metrics.Cooks.WithLabelValues(typeName, result).Inc()
	logger.Debug("Node cooked.", "duration", elapsed)
	return v, nil
}

// cookInputs computes the source of every wired input. The compute step
// reads them from the cache afterwards.
func (s *Scene) cookInputs(ctx context.Context, n *Node) error {
	s.mu.RLock()
	inputs := slices.Clone(n.inputs)
	s.mu.RUnlock()

	for i, in := range inputs {
		if in.source == nil {
			continue
		}
		if _, err := s.computeOutput(ctx, in.source, in.output); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

// run executes the compute step, or the bypass passthrough, without holding
// the scene lock.
func (s *Scene) run(ctx context.Context, n *Node, plan cookPlan) (v cty.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = cty.NilVal, fmt.Errorf("compute step panicked: %v", r)
		}
	}()

	cc := &cookContext{scene: s, node: n, path: plan.path}
	if plan.bypass {
		return s.passthrough(ctx, cc, plan)
	}
	if plan.cardinality != nil {
		return cty.NilVal, plan.cardinality
	}
	v, err = n.kind.Cook(ctx, cc)
	if err != nil {
		return cty.NilVal, err
	}
	return conformOutput(v, plan.outputs)
}

// passthrough is the output of a bypassed node: input 0 converted to each
// output type, or null when nothing is wired or the types do not match.
func (s *Scene) passthrough(ctx context.Context, cc *cookContext, plan cookPlan) (cty.Value, error) {
	in := cty.NullVal(cty.DynamicPseudoType)
	inType := connection.TypeAny
	if len(plan.inputTypes) > 0 {
		v, err := cc.Input(ctx, 0)
		if err != nil {
			return cty.NilVal, err
		}
		in, inType = v, plan.inputTypes[0]
	}

	pass := func(out connection.Point) (cty.Value, error) {
		if in.IsNull() || !connection.Compatible(inType, out.Type) {
			return cty.NullVal(out.Type.CtyType()), nil
		}
		return connection.Coerce(in, out.Type)
	}
	if len(plan.outputs) == 1 {
		return pass(plan.outputs[0])
	}
	attrs := make(map[string]cty.Value, len(plan.outputs))
	for _, out := range plan.outputs {
		v, err := pass(out)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[out.Name] = v
	}
	return cty.ObjectVal(attrs), nil
}

// conformOutput checks the computed value against the declared outputs.
// Several outputs are returned as an object keyed by output name.
func conformOutput(v cty.Value, outputs []connection.Point) (cty.Value, error) {
	if len(outputs) == 1 {
		if v.IsNull() {
			return v, nil
		}
		out, err := connection.Coerce(v, outputs[0].Type)
		if err != nil {
			return cty.NilVal, fmt.Errorf("output %q: %w", outputs[0].Name, err)
		}
		return out, nil
	}

	if v.IsNull() || !v.Type().IsObjectType() {
		return cty.NilVal, fmt.Errorf("a node with %d outputs must produce an object", len(outputs))
	}
	attrs := make(map[string]cty.Value, len(outputs))
	for _, o := range outputs {
		if !v.Type().HasAttribute(o.Name) {
			return cty.NilVal, fmt.Errorf("output %q is missing", o.Name)
		}
		av := v.GetAttr(o.Name)
		if !av.IsNull() {
			var err error
			if av, err = connection.Coerce(av, o.Type); err != nil {
				return cty.NilVal, fmt.Errorf("output %q: %w", o.Name, err)
			}
		}
		attrs[o.Name] = av
	}
	return cty.ObjectVal(attrs), nil
}

// inputValue cooks the source of input slot index of n and converts its
// value to the slot type. Unwired slots fall back to the declared default.
func (s *Scene) inputValue(ctx context.Context, n *Node, index int) (cty.Value, error) {
	s.mu.RLock()
	if n.disposed {
		s.mu.RUnlock()
		return cty.NilVal, ErrNodeDisposed
	}
	var in input
	if index >= 0 && index < len(n.inputs) {
		in = n.inputs[index]
	}
	decl := n.io.Declaration()
	slotType := decl.ExpectedInputType(index, n.wiredTypesLocked())
	s.mu.RUnlock()

	if in.source == nil {
		if index >= 0 && index < len(decl.Inputs) && decl.Inputs[index].Default != cty.NilVal {
			return decl.Inputs[index].Default, nil
		}
		return cty.NilVal, fmt.Errorf("input %d: %w", index, registry.ErrInputNotConnected)
	}

	v, err := s.computeOutput(ctx, in.source, in.output)
	if err != nil {
		return cty.NilVal, err
	}
	if v.IsNull() {
		return v, nil
	}
	out, err := connection.Coerce(v, slotType)
	if err != nil {
		return cty.NilVal, fmt.Errorf("input %d: %w", index, err)
	}
	return out, nil
}
