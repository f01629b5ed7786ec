package hclscene

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/zclconf/go-cty/cty"
)

// rawSource returns the text a parameter attribute was written as. A quoted
// string is returned without its quotes so that it reads the same as text
// typed into a parameter field.
func rawSource(src []byte, e hcl.Expression) (string, error) {
	rng := e.Range()
	if rng.End.Byte > len(src) || rng.Start.Byte > rng.End.Byte {
		return "", fmt.Errorf("%s: expression range outside of file", rng)
	}
	text := strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte]))

	quoted := len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`)
	switch e := e.(type) {
	case *hclsyntax.TemplateExpr:
		if e.IsStringLiteral() {
			v, diags := e.Value(nil)
			if diags.HasErrors() {
				return "", diags
			}
			if v.Type() == cty.String && !v.IsNull() {
				return v.AsString(), nil
			}
		}
	case *hclsyntax.TemplateWrapExpr:
	default:
		return text, nil
	}
	if quoted {
		return text[1 : len(text)-1], nil
	}
	return text, nil
}

var inputPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)(?:\[(\d+)\])?$`)

// parseInputs turns an inputs list into wiring. Entries are sibling names,
// "name[i]" for output i, or "" for an empty slot.
func parseInputs(entries []string) ([]scene.InputDocument, error) {
	var out []scene.InputDocument
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		m := inputPattern.FindStringSubmatch(entry)
		if m == nil {
			return nil, fmt.Errorf("input %d: %q is not a sibling name or name[output]", i, entry)
		}
		in := scene.InputDocument{Index: i, Node: m[1]}
		if m[2] != "" {
			output, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", i, err)
			}
			in.Output = output
		}
		out = append(out, in)
	}
	return out, nil
}
