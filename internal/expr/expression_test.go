package expr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fakeResolver struct {
	params   map[string]cty.Value
	siblings map[string]cty.Value
	paths    map[string]cty.Value
	outputs  map[string]cty.Value
	inputs   []cty.Value
	calls    []string
}

var errMissing = errors.New("missing")

func (f *fakeResolver) lookup(kind string, m map[string]cty.Value, key string) (cty.Value, error) {
	f.calls = append(f.calls, kind+":"+key)
	if v, ok := m[key]; ok {
		return v, nil
	}
	return cty.NilVal, fmt.Errorf("%s %q: %w", kind, key, errMissing)
}

func (f *fakeResolver) Param(_ context.Context, name string) (cty.Value, error) {
	return f.lookup("param", f.params, name)
}

func (f *fakeResolver) Sibling(_ context.Context, name string) (cty.Value, error) {
	return f.lookup("sibling", f.siblings, name)
}

func (f *fakeResolver) ParamAt(_ context.Context, path string) (cty.Value, error) {
	return f.lookup("ch", f.paths, path)
}

func (f *fakeResolver) OutputAt(_ context.Context, path string) (cty.Value, error) {
	return f.lookup("output", f.outputs, path)
}

func (f *fakeResolver) Input(_ context.Context, index int) (cty.Value, error) {
	f.calls = append(f.calls, fmt.Sprintf("input:%d", index))
	if index < len(f.inputs) {
		return f.inputs[index], nil
	}
	return cty.NilVal, errMissing
}

func refStrings(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func TestParse_References(t *testing.T) {
	testCases := []struct {
		src       string
		wantRefs  []string
		wantFuncs []string
		literal   bool
	}{
		{src: `5`, wantRefs: []string{}, wantFuncs: []string{}, literal: true},
		{src: `[1, 2, 3]`, wantRefs: []string{}, wantFuncs: []string{}, literal: true},
		{src: `param.size * 2`, wantRefs: []string{"param.size"}, wantFuncs: []string{}},
		{src: `box1.points[0]`, wantRefs: []string{"box1.points[0]"}, wantFuncs: []string{}},
		{src: `ch("../geo1/scale") + abs(a)`, wantRefs: []string{"a", `ch("../geo1/scale")`}, wantFuncs: []string{"abs", "ch"}},
		{src: `output("/b[1]")`, wantRefs: []string{`output("/b[1]")`}, wantFuncs: []string{"output"}},
		{src: `input(0) + input(0)`, wantRefs: []string{"input(0)"}, wantFuncs: []string{"input"}},
		{src: `ch(param.target)`, wantRefs: []string{"ch(?)", "param.target"}, wantFuncs: []string{"ch"}},
		{src: `max(1, 2)`, wantRefs: []string{}, wantFuncs: []string{"max"}},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := Parse(tc.src)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.wantRefs, refStrings(e.References())); diff != "" {
				t.Errorf("references mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.wantFuncs, e.CalledFunctions())
			assert.Equal(t, tc.literal, e.IsLiteral())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		`1 +`,
		`param`,
		`param[0]`,
		`nosuchfunc(1)`,
		`input("a")`,
		`input(-1)`,
		`ch("")`,
		`ch("a", "b")`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	e, err := ParseTemplate("plain text")
	require.NoError(t, err)
	assert.True(t, e.IsLiteral())
	v, err := e.LiteralValue()
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("plain text"), v)

	e, err = ParseTemplate("size=${param.size}")
	require.NoError(t, err)
	assert.False(t, e.IsLiteral())
	assert.True(t, e.IsTemplate())

	r := &fakeResolver{params: map[string]cty.Value{"size": cty.NumberIntVal(3)}}
	v, err = e.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "size=3", v.AsString())
}

func TestEvaluate(t *testing.T) {
	r := &fakeResolver{
		params:   map[string]cty.Value{"size": cty.NumberIntVal(4)},
		siblings: map[string]cty.Value{"a": cty.NumberIntVal(10)},
		paths:    map[string]cty.Value{"../b/scale": cty.NumberFloatVal(0.5)},
		outputs:  map[string]cty.Value{"/c[1]": cty.StringVal("hi")},
		inputs:   []cty.Value{cty.NumberIntVal(7)},
	}

	testCases := []struct {
		src  string
		want cty.Value
	}{
		{`param.size * 2`, cty.NumberIntVal(8)},
		{`a + input(0)`, cty.NumberIntVal(17)},
		{`ch("../b/scale") * a`, cty.NumberIntVal(5)},
		{`upper(output("/c[1]"))`, cty.StringVal("HI")},
		{`max(param.size, a)`, cty.NumberIntVal(10)},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := Parse(tc.src)
			require.NoError(t, err)
			got, err := e.Evaluate(context.Background(), r)
			require.NoError(t, err)
			assert.True(t, got.Equals(tc.want).True(), "got %#v", got)
		})
	}
}

func TestEvaluate_ResolverErrorsPassThrough(t *testing.T) {
	r := &fakeResolver{}

	e, err := Parse(`2 + unresolved_ref`)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), r)
	assert.ErrorIs(t, err, errMissing)

	e, err = Parse(`ch("nowhere") + 1`)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), r)
	assert.ErrorIs(t, err, errMissing)
}

func TestEvaluate_DynamicPath(t *testing.T) {
	r := &fakeResolver{
		params: map[string]cty.Value{"target": cty.StringVal("x")},
		paths:  map[string]cty.Value{"../x/value": cty.NumberIntVal(2)},
	}
	e, err := Parse(`ch(format("../%s/value", param.target))`)
	require.NoError(t, err)

	got, err := e.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, got.Equals(cty.NumberIntVal(2)).True())
	assert.Equal(t, []string{"param:target", "ch:../x/value"}, r.calls)
}

func TestLiteralValue_RejectsExpressions(t *testing.T) {
	e, err := Parse(`a + 1`)
	require.NoError(t, err)
	_, err = e.LiteralValue()
	assert.Error(t, err)
}
