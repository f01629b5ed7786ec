package scene

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/expr"
	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/vk/cookgrid/internal/nodestore"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
)

// reservedName cannot be used for nodes since expressions use it to reach
// sibling parameters.
const reservedName = expr.ParamRoot

// input is one wired input slot.
type input struct {
	source *Node
	output int
}

// Node is a node in a scene. A Node stays valid as a handle after disposal,
// but every operation on it then fails with ErrNodeDisposed.
type Node struct {
	scene *Scene
	id    nodeid.ID
	typ   *registry.NodeType
	kind  registry.Kind
	io    *connection.Controller

	// Fields below are guarded by scene.mu.
	name       string
	parent     *Node
	children   []*Node
	inputs     []input
	paramList  []*param.Param
	params     map[string]*param.Param
	bypass     bool
	display    bool
	generation uint64
	disposed   bool
}

// Input describes a wired input slot.
type Input struct {
	Index  int
	Source *Node
	Output int
}

func (n *Node) vertex() string { return n.id.String() }

// initParams instantiates the parameters declared by the node's type.
func (n *Node) initParams() error {
	n.params = make(map[string]*param.Param)
	for _, spec := range n.typ.Params {
		p, err := param.New(spec, uint64(n.id))
		if err != nil {
			return err
		}
		n.paramList = append(n.paramList, p)
		n.params[p.Name()] = p
		for _, c := range p.Components() {
			n.params[c.Name()] = c
		}
	}
	return nil
}

// ID returns the scene-unique id of the node.
func (n *Node) ID() nodeid.ID { return n.id }

// Scene returns the scene the node belongs to.
func (n *Node) Scene() *Scene { return n.scene }

// Type returns the node's registered type.
func (n *Node) Type() *registry.NodeType { return n.typ }

// Name returns the node's name. The root's name is empty.
func (n *Node) Name() string {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.name
}

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.parent
}

// Children returns the children in creation order.
func (n *Node) Children() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return slices.Clone(n.children)
}

// Child returns the child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	c := n.childLocked(name)
	return c, c != nil
}

func (n *Node) childLocked(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// IsDisposed reports whether the node has been disposed.
func (n *Node) IsDisposed() bool {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.disposed
}

// Path returns the absolute path of the node, "/" for the root.
func (n *Node) Path() string {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.pathLocked()
}

func (n *Node) pathLocked() string {
	return n.addressLocked().String()
}

func (n *Node) addressLocked() *nodeid.Address {
	var segs []nodeid.PathSegment
	for cur := n; cur.parent != nil; cur = cur.parent {
		segs = append(segs, nodeid.NewPathSegment(cur.name))
	}
	slices.Reverse(segs)
	return &nodeid.Address{Absolute: true, Path: segs}
}

// Lookup finds a node by a path relative to this one, or by an absolute
// path.
func (n *Node) Lookup(path string) (*Node, error) {
	rel, err := nodeid.Parse(path)
	if err != nil {
		return nil, err
	}
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.lookupLocked(rel)
}

func (n *Node) lookupLocked(rel *nodeid.Address) (*Node, error) {
	addr, err := nodeid.Resolve(n.addressLocked(), rel)
	if err != nil {
		return nil, err
	}
	return n.scene.nodeAtLocked(addr)
}

// Status returns the node's cook status.
func (n *Node) Status(ctx context.Context) nodestore.Status {
	status, _ := n.scene.store.GetStatus(ctx, n.id)
	return status
}

// Error returns the ComputeError of the node's last failed cook, if it is
// errored.
func (n *Node) Error(ctx context.Context) error {
	err, _ := n.scene.store.GetError(ctx, n.id)
	return err
}

// Bypass reports whether the node is bypassed.
func (n *Node) Bypass() bool {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.bypass
}

// Display reports whether the node is its parent's displayed child.
func (n *Node) Display() bool {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.display
}

// DisplayChild returns the displayed child, if any.
func (n *Node) DisplayChild() (*Node, bool) {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	c := n.displayChildLocked()
	return c, c != nil
}

func (n *Node) displayChildLocked() *Node {
	for _, c := range n.children {
		if c.display {
			return c
		}
	}
	return nil
}

func (n *Node) childContextLocked() string {
	if n.parent == nil {
		return n.scene.childContext
	}
	return n.typ.ChildContext
}

// CreateChild instantiates a registered type as a child of n. The type is
// looked up in n's child context. An empty name picks the first free
// "<type><n>" name.
func (n *Node) CreateChild(ctx context.Context, typeName, name string) (*Node, error) {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return nil, ErrNodeDisposed
	}
	childContext := n.childContextLocked()
	if childContext == "" {
		return nil, &registry.UnknownTypeError{Name: typeName}
	}
	nt, err := s.reg.Lookup(childContext, typeName)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = n.autoNameLocked(typeName)
	} else if err := n.checkChildNameLocked(name); err != nil {
		return nil, err
	}

	child, err := s.newNodeLocked(ctx, n, nt, name)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Node created.", "node", child.pathLocked(), "type", typeName, "id", child.id)
	return child, nil
}

func (n *Node) checkChildNameLocked(name string) error {
	if !nodeid.ValidName(name) {
		return &InvalidNameError{Name: name, Reason: "names must start with a letter or underscore and contain only letters, digits, '_' and '-'"}
	}
	if name == reservedName {
		return &InvalidNameError{Name: name, Reason: "the name is reserved for parameter references"}
	}
	if n.childLocked(name) != nil {
		return &DuplicateNameError{Parent: n.pathLocked(), Name: name}
	}
	return nil
}

func (n *Node) autoNameLocked(typeName string) string {
	for i := 1; ; i++ {
		candidate := typeName + strconv.Itoa(i)
		if n.childLocked(candidate) == nil {
			return candidate
		}
	}
}

// SetName renames the node. Expressions that reached the node or its
// subtree by the old name stop resolving: everything depending on the
// subtree is marked dirty and the reference edges from outside the subtree
// are dropped. They are bound again when the expressions next resolve.
func (n *Node) SetName(ctx context.Context, name string) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return ErrNodeDisposed
	}
	if n.parent == nil {
		return &InvalidNameError{Name: name, Reason: "the root cannot be renamed"}
	}
	if name == n.name {
		return nil
	}
	if err := n.parent.checkChildNameLocked(name); err != nil {
		return err
	}

	old := n.pathLocked()
	n.name = name
	s.markDependentsDirtyLocked(ctx, n.subtreeVerticesLocked(), n.ownsSubtreeVertex)
	s.unbindReferencesLocked(n.ownsSubtreeVertex)
	ctxlog.FromContext(ctx).Debug("Node renamed.", "from", old, "to", n.pathLocked())
	return nil
}

// verticesLocked lists the node's vertex and its parameter vertices.
func (n *Node) verticesLocked() []string {
	out := []string{n.vertex()}
	for name := range n.params {
		out = append(out, n.id.ParamVertex(name))
	}
	slices.Sort(out)
	return out
}

// MarkDirty invalidates the node's cached output and propagates to its
// dependents. Marking an already dirty node does nothing.
func (n *Node) MarkDirty(ctx context.Context) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.disposed {
		return ErrNodeDisposed
	}
	s.propagateLocked(ctx, []string{n.vertex()}, nil)
	return nil
}

// Dispose removes the node and its subtree from the scene. Dependents are
// marked dirty, consumers are disconnected and every dependency edge
// touching the removed nodes is deleted. Disposing twice is a no-op.
func (n *Node) Dispose(ctx context.Context) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return nil
	}
	if n.parent == nil {
		return fmt.Errorf("the scene root cannot be disposed")
	}

	path := n.pathLocked()
	s.markDependentsDirtyLocked(ctx, n.subtreeVerticesLocked(), n.ownsSubtreeVertex)
	parent := n.parent
	s.disposeLocked(ctx, n)
	parent.children = slices.DeleteFunc(parent.children, func(c *Node) bool { return c == n })
	ctxlog.FromContext(ctx).Debug("Node disposed.", "node", path)
	return nil
}

func (n *Node) subtreeVerticesLocked() []string {
	out := n.verticesLocked()
	for _, c := range n.children {
		out = append(out, c.subtreeVerticesLocked()...)
	}
	return out
}

func (n *Node) ownsSubtreeVertex(v string) bool {
	id, _, err := parseVertex(v)
	if err != nil {
		return false
	}
	for cur, ok := n.scene.nodes.Get(&Node{id: id}); ok && cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// disposeLocked tears down n and its children, post-order.
func (s *Scene) disposeLocked(ctx context.Context, n *Node) {
	for _, c := range slices.Clone(n.children) {
		s.disposeLocked(ctx, c)
	}
	n.children = nil

	if p := n.parent; p != nil {
		for _, sib := range p.children {
			if sib == n {
				continue
			}
			for i, in := range sib.inputs {
				if in.source == n {
					sib.inputs[i] = input{}
				}
			}
			sib.trimInputs()
		}
	}

	for _, v := range n.verticesLocked() {
		if deps, err := s.graph.Dependents(v); err == nil {
			for _, d := range deps {
				delete(s.refEdges[d], v)
			}
		}
		delete(s.refEdges, v)
		s.graph.RemoveNode(v)
	}

	_ = s.store.Delete(ctx, n.id)
	s.nodes.Delete(n)
	s.metrics.Nodes.Dec()
	n.generation++
	n.disposed = true
	n.display = false
	n.inputs = nil
}

// Params returns the node's top-level parameters in declaration order.
// Components of compound parameters are reached through Components.
func (n *Node) Params() []*param.Param {
	return slices.Clone(n.paramList)
}

// Param returns a parameter by name. Component names such as "sizex" are
// accepted.
func (n *Node) Param(name string) (*param.Param, bool) {
	p, ok := n.params[name]
	return p, ok
}

func (n *Node) paramLocked(name string) *param.Param {
	return n.params[name]
}

// markInputParamsDirty invalidates parameters that read input values, which
// change whenever the node is invalidated.
func (n *Node) markInputParamsDirty() {
	for _, p := range n.params {
		if p.IsCompound() {
			continue
		}
		for _, ref := range p.References() {
			if ref.Kind == expr.RefInput {
				p.MarkDirty()
				if parent := p.Parent(); parent != nil {
					parent.MarkDirty()
				}
				break
			}
		}
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.typ.Name, n.id)
}
