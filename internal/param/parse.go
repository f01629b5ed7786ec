package param

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/expr"
	"github.com/zclconf/go-cty/cty"
)

// Parsed is validated raw input that has not been applied to a parameter
// yet. It lets callers inspect the references before committing.
type Parsed struct {
	Raw string
	// Expr is nil when the raw input is a literal.
	Expr *expr.Expression
	// Literal is the converted value of a literal raw input.
	Literal cty.Value
	// Components holds the per-component raw inputs of a compound value.
	Components []*Parsed
}

// IsLiteral reports whether the raw input needs no evaluation.
func (p *Parsed) IsLiteral() bool {
	if p.Components != nil {
		for _, c := range p.Components {
			if !c.IsLiteral() {
				return false
			}
		}
		return true
	}
	return p.Expr == nil
}

// References returns everything the raw input reads, components included.
func (p *Parsed) References() []expr.Reference {
	if p.Components != nil {
		var refs []expr.Reference
		for _, c := range p.Components {
			refs = append(refs, c.References()...)
		}
		return refs
	}
	if p.Expr == nil {
		return nil
	}
	return p.Expr.References()
}

// Parse validates raw input for a parameter of type t. String parameters are
// templates; everything else is an HCL expression. Raw input without
// references or function calls is a literal and is converted right away.
// Compound types take a tuple with one item per component, or a single
// literal that is broadcast to every component.
func Parse(name string, t connection.Type, raw string) (*Parsed, error) {
	invalid := func(err error) error {
		return &InvalidValueError{Param: name, Raw: raw, Type: t, Err: err}
	}

	if t.Components() > 0 {
		parts, err := splitCompound(raw, t.Components())
		if err != nil {
			return nil, invalid(err)
		}
		p := &Parsed{Raw: raw, Components: make([]*Parsed, len(parts))}
		for i, part := range parts {
			c, err := Parse(name+t.ComponentSuffixes()[i], connection.TypeFloat, part)
			if err != nil {
				return nil, invalid(err)
			}
			p.Components[i] = c
		}
		return p, nil
	}

	var (
		e   *expr.Expression
		err error
	)
	if t == connection.TypeString {
		e, err = expr.ParseTemplate(raw)
	} else {
		e, err = expr.Parse(raw)
	}
	if err != nil {
		return nil, invalid(err)
	}
	if !e.IsLiteral() {
		return &Parsed{Raw: raw, Expr: e}, nil
	}

	v, err := e.LiteralValue()
	if err != nil {
		return nil, invalid(err)
	}
	v, err = connection.Coerce(v, t)
	if err != nil {
		return nil, invalid(err)
	}
	return &Parsed{Raw: raw, Literal: v}, nil
}

// splitCompound breaks compound raw input into one raw string per component.
func splitCompound(raw string, n int) ([]string, error) {
	src := []byte(raw)
	e, diags := hclsyntax.ParseExpression(src, "value", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}

	if tuple, ok := e.(*hclsyntax.TupleConsExpr); ok {
		if len(tuple.Exprs) != n {
			return nil, fmt.Errorf("expected %d components, got %d", n, len(tuple.Exprs))
		}
		parts := make([]string, n)
		for i, item := range tuple.Exprs {
			rng := item.Range()
			parts[i] = strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte]))
		}
		return parts, nil
	}

	if len(e.Variables()) > 0 {
		return nil, fmt.Errorf("expected a tuple of %d components", n)
	}
	v, diags := e.Value(nil)
	if diags.HasErrors() || v.Type() != cty.Number {
		return nil, fmt.Errorf("expected a tuple of %d components", n)
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strings.TrimSpace(raw)
	}
	return parts, nil
}

// JoinCompound builds compound raw input from component raw inputs.
func JoinCompound(parts []string) string {
	return "[" + strings.Join(parts, ", ") + "]"
}
