package scene

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/expr"
	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/vk/cookgrid/internal/param"
	"github.com/zclconf/go-cty/cty"
)

// SetParam sets the raw input of a parameter. The raw input is parsed and,
// for expressions, the references are recorded as dependency edges before
// anything changes. It fails with *param.InvalidValueError for unparseable
// input and *dag.CycleError when the references would close a cycle; the
// previous raw input and edges then stay in place.
func (n *Node) SetParam(ctx context.Context, name, raw string) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return ErrNodeDisposed
	}
	p := n.paramLocked(name)
	if p == nil {
		return fmt.Errorf("%s: %w %q", n.pathLocked(), ErrUnknownParam, name)
	}
	parsed, err := p.Parse(raw)
	if err != nil {
		return err
	}

	leaves := map[*param.Param]*param.Parsed{p: parsed}
	if p.IsCompound() {
		leaves = make(map[*param.Param]*param.Parsed, len(parsed.Components))
		for i, c := range p.Components() {
			leaves[c] = parsed.Components[i]
		}
	}

	bindings := make(map[string][]string, len(leaves))
	for leaf, lp := range leaves {
		bindings[n.id.ParamVertex(leaf.Name())] = s.staticProducersLocked(n, lp.References())
	}
	if p.IsCompound() {
		// Drops references bound lazily while resolving the whole compound.
		bindings[n.id.ParamVertex(p.Name())] = nil
	}
	if err := s.rebindLocked(bindings); err != nil {
		return err
	}

	p.Apply(parsed)
	forced := slices.Sorted(maps.Keys(bindings))
	if parent := p.Parent(); parent != nil {
		forced = append(forced, n.id.ParamVertex(parent.Name()))
	}
	s.markDirtyLocked(ctx, forced...)

	ctxlog.FromContext(ctx).Debug("Parameter set.", "node", n.pathLocked(), "param", name, "raw", raw, "expression", p.IsExpression())
	return nil
}

// ParamRaw returns the raw input of a parameter.
func (n *Node) ParamRaw(name string) (string, error) {
	p, ok := n.params[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownParam, name)
	}
	return p.Raw(), nil
}

// ParamValue resolves a parameter outside of a cook.
func (n *Node) ParamValue(ctx context.Context, name string) (cty.Value, error) {
	return n.scene.resolveParam(ctx, n, name)
}

// staticProducersLocked returns the vertices a parameter reads, as far as
// they can be found now. Dynamic and unresolvable references are bound when
// the parameter is resolved.
func (s *Scene) staticProducersLocked(n *Node, refs []expr.Reference) []string {
	var out []string
	for _, ref := range refs {
		if ref.Dynamic {
			continue
		}
		switch ref.Kind {
		case expr.RefParam:
			if n.paramLocked(ref.Name) != nil {
				out = append(out, n.id.ParamVertex(ref.Name))
			}
		case expr.RefSibling:
			if n.parent != nil {
				if sib := n.parent.childLocked(ref.Name); sib != nil {
					out = append(out, sib.vertex())
				}
			}
		case expr.RefPath:
			if target, name, err := n.paramTargetLocked(ref.Name); err == nil && target.paramLocked(name) != nil {
				out = append(out, target.id.ParamVertex(name))
			}
		case expr.RefOutput:
			if target, _, err := n.outputTargetLocked(ref.Name); err == nil {
				out = append(out, target.vertex())
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// rebindLocked replaces the reference edges of each consumer vertex with
// the given producers. New edges are added first; if any would close a
// cycle, the added ones are rolled back and the old bindings kept.
func (s *Scene) rebindLocked(bindings map[string][]string) error {
	type edge struct{ from, to string }
	var added []edge

	for _, to := range slices.Sorted(maps.Keys(bindings)) {
		for _, from := range bindings[to] {
			if _, ok := s.refEdges[to][from]; ok {
				continue
			}
			if err := s.graph.AddEdge(from, to); err != nil {
				for _, e := range added {
					_ = s.graph.RemoveEdge(e.from, e.to)
				}
				return err
			}
			added = append(added, edge{from, to})
		}
	}

	for to, producers := range bindings {
		old := s.refEdges[to]
		next := make(map[string]struct{}, len(producers))
		for _, from := range producers {
			next[from] = struct{}{}
		}
		for from := range old {
			if _, keep := next[from]; !keep {
				_ = s.graph.RemoveEdge(from, to)
			}
		}
		if len(next) == 0 {
			delete(s.refEdges, to)
			continue
		}
		s.refEdges[to] = next
	}
	return nil
}

// unbindReferencesLocked drops the reference edges whose producer is inside
// and whose consumer is outside the vertex set described by inside.
func (s *Scene) unbindReferencesLocked(inside func(string) bool) {
	for to, producers := range s.refEdges {
		if inside(to) {
			continue
		}
		for from := range producers {
			if inside(from) {
				_ = s.graph.RemoveEdge(from, to)
				delete(producers, from)
			}
		}
		if len(producers) == 0 {
			delete(s.refEdges, to)
		}
	}
}

// bindLazily records a reference edge discovered while resolving.
func (s *Scene) bindLazily(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refEdges[to][from]; ok {
		return nil
	}
	if !s.graph.HasNode(to) || !s.graph.HasNode(from) {
		return ErrNodeDisposed
	}
	if err := s.graph.AddEdge(from, to); err != nil {
		return err
	}
	if s.refEdges[to] == nil {
		s.refEdges[to] = make(map[string]struct{})
	}
	s.refEdges[to][from] = struct{}{}
	return nil
}

// paramTargetLocked splits a ch() path into the node and the parameter
// name. Relative paths start at the node owning the expression.
func (n *Node) paramTargetLocked(path string) (*Node, string, error) {
	addr, err := nodeid.Parse(path)
	if err != nil {
		return nil, "", err
	}
	last := addr.Last()
	if len(addr.Path) == 0 || last.HasIndex() || last.Name == "." || last.Name == ".." {
		return nil, "", fmt.Errorf("parameter path %q must end with a parameter name", path)
	}
	target, err := n.lookupLocked(addr.Parent())
	if err != nil {
		return nil, "", err
	}
	return target, last.Name, nil
}

// outputTargetLocked resolves an output() path into a node and output index.
func (n *Node) outputTargetLocked(path string) (*Node, int, error) {
	addr, err := nodeid.Parse(path)
	if err != nil {
		return nil, 0, err
	}
	addr, index := addr.WithoutIndex()
	if index < 0 {
		index = 0
	}
	target, err := n.lookupLocked(addr)
	if err != nil {
		return nil, 0, err
	}
	if index >= target.numOutputs() {
		return nil, 0, fmt.Errorf("%s has no output %d", target.pathLocked(), index)
	}
	return target, index, nil
}

// resolveParam resolves a parameter of n with n's resolver.
func (s *Scene) resolveParam(ctx context.Context, n *Node, name string) (cty.Value, error) {
	s.mu.RLock()
	disposed := n.disposed
	p := n.paramLocked(name)
	path := n.pathLocked()
	s.mu.RUnlock()

	if disposed {
		return cty.NilVal, ErrNodeDisposed
	}
	if p == nil {
		return cty.NilVal, fmt.Errorf("%s: %w %q", path, ErrUnknownParam, name)
	}

	vertex := n.id.ParamVertex(name)
	ctx, err := enterChain(ctx, vertex, path)
	if err != nil {
		return cty.NilVal, err
	}
	return p.Resolve(ctx, &resolver{scene: s, node: n, vertex: vertex})
}

// resolver evaluates the references of one parameter vertex.
type resolver struct {
	scene  *Scene
	node   *Node
	vertex string
}

var _ expr.Resolver = (*resolver)(nil)

func (r *resolver) unresolved(ref string, err error) error {
	return &UnresolvedReferenceError{Node: r.node.Path(), Reference: ref, Err: err}
}

func (r *resolver) Param(ctx context.Context, name string) (cty.Value, error) {
	if _, ok := r.node.Param(name); !ok {
		return cty.NilVal, r.unresolved(expr.ParamRoot+"."+name, ErrUnknownParam)
	}
	if err := r.scene.bindLazily(r.node.id.ParamVertex(name), r.vertex); err != nil {
		return cty.NilVal, err
	}
	return r.scene.resolveParam(ctx, r.node, name)
}

func (r *resolver) Sibling(ctx context.Context, name string) (cty.Value, error) {
	s := r.scene
	s.mu.RLock()
	var sib *Node
	if r.node.parent != nil {
		sib = r.node.parent.childLocked(name)
	}
	s.mu.RUnlock()

	if sib == nil {
		return cty.NilVal, r.unresolved(name, ErrNodeNotFound)
	}
	if err := s.bindLazily(sib.vertex(), r.vertex); err != nil {
		return cty.NilVal, err
	}
	return s.compute(ctx, sib)
}

func (r *resolver) ParamAt(ctx context.Context, path string) (cty.Value, error) {
	s := r.scene
	s.mu.RLock()
	target, name, err := r.node.paramTargetLocked(path)
	if err == nil && target.paramLocked(name) == nil {
		err = fmt.Errorf("%s: %w %q", target.pathLocked(), ErrUnknownParam, name)
	}
	s.mu.RUnlock()

	if err != nil {
		return cty.NilVal, r.unresolved(fmt.Sprintf("%s(%q)", expr.FuncParamAt, path), err)
	}
	if err := s.bindLazily(target.id.ParamVertex(name), r.vertex); err != nil {
		return cty.NilVal, err
	}
	return s.resolveParam(ctx, target, name)
}

func (r *resolver) OutputAt(ctx context.Context, path string) (cty.Value, error) {
	s := r.scene
	s.mu.RLock()
	target, index, err := r.node.outputTargetLocked(path)
	s.mu.RUnlock()

	if err != nil {
		return cty.NilVal, r.unresolved(fmt.Sprintf("%s(%q)", expr.FuncOutput, path), err)
	}
	if err := s.bindLazily(target.vertex(), r.vertex); err != nil {
		return cty.NilVal, err
	}
	return s.computeOutput(ctx, target, index)
}

func (r *resolver) Input(ctx context.Context, index int) (cty.Value, error) {
	return r.scene.inputValue(ctx, r.node, index)
}
