package expr

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// RefKind identifies a reference form.
type RefKind int

const (
	RefParam RefKind = iota
	RefSibling
	RefPath
	RefOutput
	RefInput
)

func (k RefKind) String() string {
	switch k {
	case RefParam:
		return "param"
	case RefSibling:
		return "sibling"
	case RefPath:
		return "ch"
	case RefOutput:
		return "output"
	case RefInput:
		return "input"
	default:
		return "unknown"
	}
}

// ParamRoot is the variable name under which sibling parameters are exposed.
const ParamRoot = "param"

// Reference is something an expression reads.
type Reference struct {
	Kind RefKind
	// Name is the parameter name, sibling node name, or path argument.
	Name string
	// Index is the input slot for RefInput, otherwise -1.
	Index int
	// Dynamic marks a ch/output/input call whose argument is not a literal.
	Dynamic bool
	// Traversal is the source traversal for param and sibling references.
	Traversal hcl.Traversal
}

func (r Reference) String() string {
	switch {
	case r.Dynamic:
		return r.Kind.String() + "(?)"
	case r.Traversal != nil:
		return TraversalKey(r.Traversal)
	case r.Kind == RefInput:
		return "input(" + strconv.Itoa(r.Index) + ")"
	default:
		return fmt.Sprintf("%s(%q)", r.Kind, r.Name)
	}
}

// TraversalKey generates a stable, canonical string representation for an
// hcl.Traversal, suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., param.size or box1.points[0]
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

func referenceFromTraversal(t hcl.Traversal) (Reference, error) {
	root := t.RootName()
	if root != ParamRoot {
		return Reference{Kind: RefSibling, Name: root, Index: -1, Traversal: t}, nil
	}
	if len(t) < 2 {
		return Reference{}, fmt.Errorf("%s must be followed by a parameter name", ParamRoot)
	}
	attr, ok := t[1].(hcl.TraverseAttr)
	if !ok {
		return Reference{}, fmt.Errorf("%s must be followed by a parameter name", ParamRoot)
	}
	return Reference{Kind: RefParam, Name: attr.Name, Index: -1, Traversal: t}, nil
}
