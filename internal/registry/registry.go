package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/param"
)

// DefaultContext is the context of types registered without one.
const DefaultContext = "value"

// DefaultOutput is given to types that declare no outputs.
var DefaultOutput = connection.NewOutput("out", connection.TypeAny)

// Module is the interface that all node modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Factory creates the Kind for a new node instance.
type Factory func() Kind

// TypeOptions describe a node type at registration.
type TypeOptions struct {
	// Context is the context the type lives in; empty means DefaultContext.
	Context string
	// ChildContext names the context of the children a node of this type can
	// host. Empty means the node cannot have children.
	ChildContext string
	Description  string
	IO           connection.Declaration
	Params       []param.Spec
	// ParamsStruct optionally names a struct (or pointer to one) whose
	// `param` tagged fields the kind decodes its parameters into. Validate
	// checks it against Params.
	ParamsStruct any
}

// NodeType is a registered node type.
type NodeType struct {
	Name         string
	Context      string
	ChildContext string
	Description  string
	IO           connection.Declaration
	Params       []param.Spec
	ParamsType   reflect.Type
	Factory      Factory
}

// Param returns the spec of the named parameter.
func (t *NodeType) Param(name string) (param.Spec, bool) {
	for _, s := range t.Params {
		if s.Name == name {
			return s, true
		}
	}
	return param.Spec{}, false
}

type typeKey struct {
	context string
	name    string
}

// Registry holds all the registered node types for a single application
// instance. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[typeKey]*NodeType
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		types: make(map[typeKey]*NodeType),
	}
}

// RegisterModules registers every module in order.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// RegisterNodeType registers a node type. Registering the same name twice in
// one context is a programming error and panics.
func (r *Registry) RegisterNodeType(name string, factory Factory, opts TypeOptions) {
	if name == "" {
		panic("node type name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("node type '%s' has no factory", name))
	}
	context := opts.Context
	if context == "" {
		context = DefaultContext
	}

	if len(opts.IO.Outputs) == 0 {
		opts.IO.Outputs = []connection.Point{DefaultOutput}
	}

	nt := &NodeType{
		Name:         name,
		Context:      context,
		ChildContext: opts.ChildContext,
		Description:  opts.Description,
		IO:           opts.IO,
		Params:       slices.Clone(opts.Params),
		Factory:      factory,
	}
	if opts.ParamsStruct != nil {
		t := reflect.TypeOf(opts.ParamsStruct)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		nt.ParamsType = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := typeKey{context: context, name: name}
	if _, exists := r.types[key]; exists {
		panic(fmt.Sprintf("node type '%s' already registered in context '%s'", name, context))
	}
	slog.Debug("Registering node type.", "context", context, "name", name)
	r.types[key] = nt
}

// Lookup returns the type registered under name in a context.
func (r *Registry) Lookup(context, name string) (*NodeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nt, ok := r.types[typeKey{context: context, name: name}]
	if !ok {
		return nil, &UnknownTypeError{Context: context, Name: name}
	}
	return nt, nil
}

// Types returns the types of a context sorted by name.
func (r *Registry) Types(context string) []*NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*NodeType
	for key, nt := range r.types {
		if key.context == context {
			out = append(out, nt)
		}
	}
	slices.SortFunc(out, func(a, b *NodeType) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Contexts returns the sorted names of all contexts with registered types.
func (r *Registry) Contexts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range r.types {
		seen[key.context] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// UnknownTypeError is returned when no type is registered under a name in a
// context.
type UnknownTypeError struct {
	Context string
	Name    string
}

func (e *UnknownTypeError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("unknown node type '%s': parent cannot host children", e.Name)
	}
	return fmt.Sprintf("unknown node type '%s' in context '%s'", e.Name, e.Context)
}
