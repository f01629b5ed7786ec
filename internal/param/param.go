package param

import (
	"context"
	"sync"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/expr"
	"github.com/zclconf/go-cty/cty"
)

// Param is a parameter instance on a node. All methods are safe for
// concurrent use.
type Param struct {
	name       string
	typ        connection.Type
	defaultRaw string
	owner      uint64

	parent     *Param
	components []*Param

	mu      sync.Mutex
	parsed  *Parsed
	value   cty.Value
	dirty   bool
	err     error
	version uint64
}

// New creates a parameter from its spec, set to the spec's default. owner is
// the id of the node the parameter belongs to.
func New(spec Spec, owner uint64) (*Param, error) {
	parsed, err := Parse(spec.Name, spec.Type, spec.DefaultRaw())
	if err != nil {
		return nil, err
	}
	p := &Param{
		name:       spec.Name,
		typ:        spec.Type,
		defaultRaw: spec.DefaultRaw(),
		owner:      owner,
	}
	if parsed.Components != nil {
		suffixes := spec.Type.ComponentSuffixes()
		p.components = make([]*Param, len(parsed.Components))
		for i, cp := range parsed.Components {
			c := &Param{
				name:       spec.Name + suffixes[i],
				typ:        connection.TypeFloat,
				defaultRaw: cp.Raw,
				owner:      owner,
				parent:     p,
			}
			c.apply(cp)
			p.components[i] = c
		}
	}
	p.apply(parsed)
	return p, nil
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// Type returns the parameter type.
func (p *Param) Type() connection.Type { return p.typ }

// Owner returns the id of the owning node.
func (p *Param) Owner() uint64 { return p.owner }

// Default returns the default raw input.
func (p *Param) Default() string { return p.defaultRaw }

// Parent returns the compound parameter a component belongs to, or nil.
func (p *Param) Parent() *Param { return p.parent }

// Components returns the component parameters of a compound, or nil.
func (p *Param) Components() []*Param { return p.components }

// IsCompound reports whether the parameter is made of components.
func (p *Param) IsCompound() bool { return p.components != nil }

// Raw returns the current raw input. For compounds it is rebuilt from the
// components.
func (p *Param) Raw() string {
	if p.components != nil {
		parts := make([]string, len(p.components))
		for i, c := range p.components {
			parts[i] = c.Raw()
		}
		return JoinCompound(parts)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parsed.Raw
}

// IsExpression reports whether resolving the parameter evaluates an
// expression.
func (p *Param) IsExpression() bool {
	if p.components != nil {
		for _, c := range p.components {
			if c.IsExpression() {
				return true
			}
		}
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parsed.Expr != nil
}

// References returns what the current raw input reads. Compounds report
// nothing; their components carry the references.
func (p *Param) References() []expr.Reference {
	if p.components != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parsed.References()
}

// Parse validates raw input for this parameter without applying it.
func (p *Param) Parse(raw string) (*Parsed, error) {
	return Parse(p.name, p.typ, raw)
}

// Apply commits parsed raw input and marks the parameter dirty. For a
// compound, the components receive the per-component inputs.
func (p *Param) Apply(parsed *Parsed) {
	if p.components != nil && parsed.Components != nil {
		for i, c := range p.components {
			c.Apply(parsed.Components[i])
		}
		p.MarkDirty()
		return
	}
	p.apply(parsed)
}

func (p *Param) apply(parsed *Parsed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parsed = parsed
	p.value = cty.NilVal
	p.err = nil
	p.dirty = true
	p.version++
}

// MarkDirty invalidates the cached value. It returns false when the
// parameter was already dirty.
func (p *Param) MarkDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.version++
	if p.dirty {
		return false
	}
	p.dirty = true
	return true
}

// IsDirty reports whether the next Resolve has to recompute the value.
func (p *Param) IsDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Err returns the error stored by the last failed resolution, if any.
func (p *Param) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Value returns the cached value without resolving. ok is false when the
// cache is stale or empty.
func (p *Param) Value() (v cty.Value, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty || p.err != nil {
		return cty.NilVal, false
	}
	return p.value, true
}

// Resolve returns the parameter's value, evaluating its expression through r
// when the cache is stale. Evaluation failures are stored on the parameter
// as *ExpressionEvaluationError and returned. A value computed while the
// parameter was changed concurrently is returned but not cached.
func (p *Param) Resolve(ctx context.Context, r expr.Resolver) (cty.Value, error) {
	if p.components != nil {
		return p.resolveCompound(ctx, r)
	}

	p.mu.Lock()
	if !p.dirty {
		v, err := p.value, p.err
		p.mu.Unlock()
		return v, err
	}
	parsed, version := p.parsed, p.version
	p.mu.Unlock()

	v, err := p.evaluate(ctx, parsed, r)

	p.mu.Lock()
	defer p.mu.Unlock()
	if version == p.version {
		p.value, p.err = v, err
		p.dirty = err != nil
	}
	return v, err
}

func (p *Param) evaluate(ctx context.Context, parsed *Parsed, r expr.Resolver) (cty.Value, error) {
	if parsed.Expr == nil {
		return parsed.Literal, nil
	}
	v, err := parsed.Expr.Evaluate(ctx, r)
	if err == nil {
		v, err = connection.Coerce(v, p.typ)
	}
	if err != nil {
		return cty.NilVal, &ExpressionEvaluationError{Param: p.name, Expression: parsed.Raw, Err: err}
	}
	return v, nil
}

func (p *Param) resolveCompound(ctx context.Context, r expr.Resolver) (cty.Value, error) {
	p.mu.Lock()
	version := p.version
	p.mu.Unlock()

	elems := make([]cty.Value, len(p.components))
	var firstErr error
	for i, c := range p.components {
		v, err := c.Resolve(ctx, r)
		if err != nil {
			firstErr = err
			break
		}
		elems[i] = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if firstErr != nil {
		if version == p.version {
			p.err = firstErr
		}
		return cty.NilVal, firstErr
	}
	v := cty.TupleVal(elems)
	if version == p.version {
		p.value, p.err, p.dirty = v, nil, false
	}
	return v, nil
}
