package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Expression is a parsed parameter expression together with everything it
// reads. It is immutable and safe for concurrent use.
type Expression struct {
	source    string
	template  bool
	expr      hclsyntax.Expression
	refs      []Reference
	functions []string
}

// Parse parses src as an HCL native expression.
func Parse(src string) (*Expression, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %q: %s", src, diags.Error())
	}
	return newExpression(src, e, false)
}

// ParseTemplate parses src as an HCL template, so plain text is a literal
// and "${...}" sequences interpolate expressions.
func ParseTemplate(src string) (*Expression, error) {
	e, diags := hclsyntax.ParseTemplate([]byte(src), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse template %q: %s", src, diags.Error())
	}
	return newExpression(src, e, true)
}

func newExpression(src string, e hclsyntax.Expression, template bool) (*Expression, error) {
	refs, funcs, err := extractReferencesAndFunctions(e)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", src, err)
	}
	for _, name := range funcs {
		if !KnownFunction(name) {
			return nil, fmt.Errorf("%q: call to unknown function %q", src, name)
		}
	}
	return &Expression{source: src, template: template, expr: e, refs: refs, functions: funcs}, nil
}

// Source returns the text the expression was parsed from.
func (e *Expression) Source() string { return e.source }

// IsTemplate reports whether the expression was parsed as a template.
func (e *Expression) IsTemplate() bool { return e.template }

// References returns the unique references in a deterministic order.
func (e *Expression) References() []Reference { return e.refs }

// CalledFunctions returns the sorted unique names of called functions.
func (e *Expression) CalledFunctions() []string { return e.functions }

// IsLiteral reports whether the expression reads nothing and calls nothing,
// so it evaluates to the same value in any scene.
func (e *Expression) IsLiteral() bool {
	return len(e.refs) == 0 && len(e.functions) == 0
}

// LiteralValue evaluates a literal expression without any context.
func (e *Expression) LiteralValue() (cty.Value, error) {
	if !e.IsLiteral() {
		return cty.NilVal, fmt.Errorf("%q is not a literal", e.source)
	}
	v, diags := e.expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%q: %s", e.source, diags.Error())
	}
	return v, nil
}

func (e *Expression) String() string { return e.source }

// extractReferencesAndFunctions walks an expression to find all unique
// references and function calls. The returned slices are sorted to ensure a
// deterministic order.
func extractReferencesAndFunctions(e hclsyntax.Expression) ([]Reference, []string, error) {
	refs := make(map[string]Reference)
	functions := make(map[string]struct{})

	// Variables() collects traversals robustly, including inside templates
	// and for expressions.
	for _, traversal := range e.Variables() {
		ref, err := referenceFromTraversal(traversal)
		if err != nil {
			return nil, nil, err
		}
		refs[ref.String()] = ref
	}

	// Calls are not variables, so walk the tree for those.
	var callErr error
	walkForFunctions(e, functions, func(call *hclsyntax.FunctionCallExpr) {
		ref, ok, err := referenceFromCall(call)
		if err != nil && callErr == nil {
			callErr = err
		}
		if ok {
			refs[ref.String()] = ref
		}
	})
	if callErr != nil {
		return nil, nil, callErr
	}

	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	refSlice := make([]Reference, 0, len(keys))
	for _, k := range keys {
		refSlice = append(refSlice, refs[k])
	}

	functionSlice := make([]string, 0, len(functions))
	for f := range functions {
		functionSlice = append(functionSlice, f)
	}
	slices.Sort(functionSlice)

	return refSlice, functionSlice, nil
}

// referenceFromCall turns a ch/output/input call into a reference.
func referenceFromCall(call *hclsyntax.FunctionCallExpr) (Reference, bool, error) {
	var kind RefKind
	switch call.Name {
	case FuncParamAt:
		kind = RefPath
	case FuncOutput:
		kind = RefOutput
	case FuncInput:
		kind = RefInput
	default:
		return Reference{}, false, nil
	}
	if len(call.Args) != 1 {
		return Reference{}, false, fmt.Errorf("%s() takes exactly one argument", call.Name)
	}

	ref := Reference{Kind: kind, Index: -1}
	arg := call.Args[0]
	if len(arg.Variables()) > 0 || containsCall(arg) {
		ref.Dynamic = true
		return ref, true, nil
	}
	v, diags := arg.Value(nil)
	if diags.HasErrors() || v.IsNull() || !v.IsKnown() {
		ref.Dynamic = true
		return ref, true, nil
	}

	if kind == RefInput {
		if v.Type() != cty.Number {
			return Reference{}, false, fmt.Errorf("input() expects a slot number")
		}
		idx, acc := v.AsBigFloat().Int64()
		if acc != 0 || idx < 0 {
			return Reference{}, false, fmt.Errorf("input() expects a non-negative whole number")
		}
		ref.Index = int(idx)
		return ref, true, nil
	}
	if v.Type() != cty.String {
		return Reference{}, false, fmt.Errorf("%s() expects a path string", call.Name)
	}
	ref.Name = strings.TrimSpace(v.AsString())
	if ref.Name == "" {
		return Reference{}, false, fmt.Errorf("%s() path must not be empty", call.Name)
	}
	return ref, true, nil
}

func containsCall(e hclsyntax.Expression) bool {
	found := false
	walkForFunctions(e, map[string]struct{}{}, func(*hclsyntax.FunctionCallExpr) { found = true })
	return found
}

// walkForFunctions recursively walks the AST, looking only for function
// calls. onCall, when set, sees every call expression.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}, onCall func(*hclsyntax.FunctionCallExpr)) {
	if expr == nil {
		return
	}
	walk := func(e hclsyntax.Expression) { walkForFunctions(e, functions, onCall) }

	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		if onCall != nil {
			onCall(e)
		}
		for _, arg := range e.Args {
			walk(arg)
		}
	case *hclsyntax.BinaryOpExpr:
		walk(e.LHS)
		walk(e.RHS)
	case *hclsyntax.ConditionalExpr:
		walk(e.Condition)
		walk(e.TrueResult)
		walk(e.FalseResult)
	case *hclsyntax.UnaryOpExpr:
		walk(e.Val)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walk(part)
		}
	case *hclsyntax.TemplateWrapExpr:
		walk(e.Wrapped)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walk(item)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walk(item.KeyExpr)
			walk(item.ValueExpr)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walk(e.Wrapped)
	case *hclsyntax.ForExpr:
		walk(e.CollExpr)
		walk(e.KeyExpr)
		walk(e.ValExpr)
		walk(e.CondExpr)
	case *hclsyntax.IndexExpr:
		walk(e.Collection)
		walk(e.Key)
	case *hclsyntax.RelativeTraversalExpr:
		walk(e.Source)
	case *hclsyntax.SplatExpr:
		walk(e.Source)
		walk(e.Each)
	case *hclsyntax.ParenthesesExpr:
		walk(e.Expression)
	}
}
