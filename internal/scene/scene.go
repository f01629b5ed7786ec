package scene

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/btree"
	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/dag"
	"github.com/vk/cookgrid/internal/inmemorystore"
	"github.com/vk/cookgrid/internal/metrics"
	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/vk/cookgrid/internal/nodestore"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/singleflight"
)

// RootTypeName is the type name reported by the root node.
const RootTypeName = "root"

// Scene is a tree of nodes and the dependency graph between them.
type Scene struct {
	id           uuid.UUID
	reg          *registry.Registry
	childContext string

	// mu guards the structure: hierarchy, wiring, flags, parameter raw
	// inputs, reference edges and dirty state.
	mu       sync.RWMutex
	nodes    *btree.BTreeG[*Node]
	nextID   nodeid.ID
	root     *Node
	graph    *dag.Graph
	refEdges map[string]map[string]struct{}

	store   nodestore.Store
	cooks   singleflight.Group
	metrics *metrics.Collectors
}

type options struct {
	id           uuid.UUID
	childContext string
	registerer   prometheus.Registerer
	store        nodestore.Store
}

// Option configures a new scene.
type Option func(*options)

// WithChildContext sets the context of the root's children.
func WithChildContext(name string) Option {
	return func(o *options) { o.childContext = name }
}

// WithID sets the scene id instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

// WithRegisterer registers the scene's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithStore replaces the in-memory cook state store.
func WithStore(store nodestore.Store) Option {
	return func(o *options) { o.store = store }
}

// New creates an empty scene whose root hosts types of the child context
// (registry.DefaultContext unless configured).
func New(reg *registry.Registry, opts ...Option) *Scene {
	o := options{childContext: registry.DefaultContext}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	if o.store == nil {
		o.store = inmemorystore.New()
	}

	s := &Scene{
		id:           o.id,
		reg:          reg,
		childContext: o.childContext,
		nodes: btree.NewBTreeG(func(a, b *Node) bool {
			return a.id < b.id
		}),
		graph:    dag.New(),
		refEdges: make(map[string]map[string]struct{}),
		store:    o.store,
		metrics:  metrics.New(o.registerer),
	}

	rootType := &registry.NodeType{
		Name:         RootTypeName,
		ChildContext: o.childContext,
		IO: connection.Declaration{
			Outputs: []connection.Point{registry.DefaultOutput},
		},
		Factory: func() registry.Kind { return registry.KindFunc(cookDisplayChild) },
	}
	root, err := s.newNodeLocked(context.Background(), nil, rootType, "")
	if err != nil {
		// The root type declares no parameters, so nothing can fail.
		panic(fmt.Sprintf("create scene root: %v", err))
	}
	s.root = root
	return s
}

// cookDisplayChild forwards the output of the displayed child, or null.
func cookDisplayChild(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	v, ok, err := cc.DisplayChild(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	if !ok {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return v, nil
}

// ID returns the scene id.
func (s *Scene) ID() uuid.UUID { return s.id }

// Root returns the root node.
func (s *Scene) Root() *Node { return s.root }

// Registry returns the registry the scene instantiates types from.
func (s *Scene) Registry() *registry.Registry { return s.reg }

// ChildContext returns the context of the root's children.
func (s *Scene) ChildContext() string { return s.childContext }

// Graph exposes the dependency graph for inspection.
func (s *Scene) Graph() *dag.Graph { return s.graph }

// Metrics returns the scene's collectors.
func (s *Scene) Metrics() *metrics.Collectors { return s.metrics }

// Len returns the number of live nodes, root included.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.Len()
}

// Node returns the live node with the given id.
func (s *Scene) Node(id nodeid.ID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes.Get(&Node{id: id})
}

// Nodes returns all live nodes in id order.
func (s *Scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, s.nodes.Len())
	s.nodes.Scan(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// NodeByPath finds a node by path. Relative paths start at the root.
func (s *Scene) NodeByPath(path string) (*Node, error) {
	addr, err := nodeid.Parse(path)
	if err != nil {
		return nil, err
	}
	addr.Absolute = true
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeAtLocked(addr)
}

func (s *Scene) nodeAtLocked(addr *nodeid.Address) (*Node, error) {
	resolved, err := nodeid.Resolve(nodeid.Root(), addr)
	if err != nil {
		return nil, err
	}
	n := s.root
	for _, seg := range resolved.Path {
		child := n.childLocked(seg.Name)
		if child == nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, resolved.String())
		}
		n = child
	}
	return n, nil
}

// EdgesReferencing counts the dependency edges touching the node's vertex
// or any of its parameter vertices.
func (s *Scene) EdgesReferencing(id nodeid.ID) int {
	prefix := id.String() + ":"
	count := 0
	for _, v := range s.graph.Nodes() {
		if v == id.String() || strings.HasPrefix(v, prefix) {
			count += s.graph.EdgesTouching(v)
		}
	}
	return count
}

// newNodeLocked creates a node of type nt under parent. The caller holds the
// write lock (or owns the scene exclusively).
func (s *Scene) newNodeLocked(ctx context.Context, parent *Node, nt *registry.NodeType, name string) (*Node, error) {
	s.nextID++
	n := &Node{
		scene:  s,
		id:     s.nextID,
		name:   name,
		typ:    nt,
		parent: parent,
	}
	n.kind = nt.Factory()
	n.io = connection.NewController(nt.IO, n.wiredTypesLocked)
	if err := n.initParams(); err != nil {
		return nil, err
	}

	s.graph.AddNode(n.vertex())
	for _, p := range n.paramList {
		for _, c := range p.Components() {
			if err := s.graph.AddEdge(n.id.ParamVertex(c.Name()), n.id.ParamVertex(p.Name())); err != nil {
				return nil, err
			}
		}
		if err := s.graph.AddEdge(n.id.ParamVertex(p.Name()), n.vertex()); err != nil {
			return nil, err
		}
	}
	if err := s.store.SetStatus(ctx, n.id, nodestore.StatusDirty); err != nil {
		return nil, err
	}

	s.nodes.Set(n)
	s.metrics.Nodes.Inc()
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	return n, nil
}

// markDirtyLocked marks the given vertices dirty unconditionally and
// propagates forward from them. Propagation stops at vertices that were
// already dirty.
func (s *Scene) markDirtyLocked(ctx context.Context, forced ...string) {
	s.propagateLocked(ctx, forced, forced)
}

// markDependentsDirtyLocked propagates from the consumers of the given
// vertices without forcing anything.
func (s *Scene) markDependentsDirtyLocked(ctx context.Context, vertices []string, exclude func(string) bool) {
	var starts []string
	for _, v := range vertices {
		deps, err := s.graph.Dependents(v)
		if err != nil {
			continue
		}
		for _, d := range deps {
			if exclude == nil || !exclude(d) {
				starts = append(starts, d)
			}
		}
	}
	slices.Sort(starts)
	starts = slices.Compact(starts)
	s.propagateLocked(ctx, starts, nil)
}

func (s *Scene) propagateLocked(ctx context.Context, starts, forced []string) {
	if len(starts) == 0 {
		return
	}
	marks := 0
	visits := s.graph.Propagate(starts, func(v string) bool {
		changed := s.markVertexLocked(ctx, v)
		if changed {
			marks++
		}
		return changed || slices.Contains(forced, v)
	})
	s.metrics.DirtyTraversals.Add(float64(visits))
	s.metrics.DirtyMarks.Add(float64(marks))
	ctxlog.FromContext(ctx).Debug("Dirty state propagated.", "starts", starts, "visited", visits, "marked", marks)
}

// markVertexLocked marks one vertex dirty and reports whether its state
// changed. Every visit bumps a node's cook generation, so a cook in flight
// will not cache its result.
func (s *Scene) markVertexLocked(ctx context.Context, v string) bool {
	id, paramName, err := parseVertex(v)
	if err != nil {
		return false
	}
	n, ok := s.nodes.Get(&Node{id: id})
	if !ok {
		return false
	}

	if paramName != "" {
		p := n.paramLocked(paramName)
		if p == nil {
			return false
		}
		return p.MarkDirty()
	}

	n.generation++
	n.markInputParamsDirty()
	status, _ := s.store.GetStatus(ctx, id)
	if status == nodestore.StatusDirty {
		return false
	}
	_ = s.store.SetStatus(ctx, id, nodestore.StatusDirty)
	return true
}

func parseVertex(v string) (nodeid.ID, string, error) {
	if !strings.HasPrefix(v, "n") {
		return 0, "", fmt.Errorf("not a scene vertex: %q", v)
	}
	idPart, paramName, _ := strings.Cut(v[1:], ":")
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("not a scene vertex: %q", v)
	}
	return nodeid.ID(id), paramName, nil
}
