package param

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/connection"
	"github.com/zclconf/go-cty/cty"
)

// siblingResolver resolves `param.<name>` against a set of params and
// everything else against fixed values.
type siblingResolver struct {
	params   map[string]*Param
	siblings map[string]cty.Value
}

var errUnresolved = errors.New("unresolved")

func (r *siblingResolver) Param(ctx context.Context, name string) (cty.Value, error) {
	p, ok := r.params[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("param %q: %w", name, errUnresolved)
	}
	return p.Resolve(ctx, r)
}

func (r *siblingResolver) Sibling(_ context.Context, name string) (cty.Value, error) {
	if v, ok := r.siblings[name]; ok {
		return v, nil
	}
	return cty.NilVal, fmt.Errorf("node %q: %w", name, errUnresolved)
}

func (r *siblingResolver) ParamAt(context.Context, string) (cty.Value, error) {
	return cty.NilVal, errUnresolved
}

func (r *siblingResolver) OutputAt(context.Context, string) (cty.Value, error) {
	return cty.NilVal, errUnresolved
}

func (r *siblingResolver) Input(context.Context, int) (cty.Value, error) {
	return cty.NilVal, errUnresolved
}

func mustParam(t *testing.T, spec Spec) *Param {
	t.Helper()
	p, err := New(spec, 1)
	require.NoError(t, err)
	return p
}

func set(t *testing.T, p *Param, raw string) {
	t.Helper()
	parsed, err := p.Parse(raw)
	require.NoError(t, err)
	p.Apply(parsed)
}

func TestParse_Literals(t *testing.T) {
	testCases := []struct {
		typ  connection.Type
		raw  string
		want cty.Value
	}{
		{connection.TypeFloat, "2.5", cty.NumberFloatVal(2.5)},
		{connection.TypeInt, "3", cty.NumberIntVal(3)},
		{connection.TypeBool, "true", cty.True},
		{connection.TypeString, "hello", cty.StringVal("hello")},
		{connection.TypeFloat, `"4"`, cty.NumberIntVal(4)},
	}
	for _, tc := range testCases {
		t.Run(tc.typ.String()+"/"+tc.raw, func(t *testing.T) {
			parsed, err := Parse("p", tc.typ, tc.raw)
			require.NoError(t, err)
			assert.True(t, parsed.IsLiteral())
			assert.True(t, parsed.Literal.Equals(tc.want).True(), "got %#v", parsed.Literal)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		typ connection.Type
		raw string
	}{
		{connection.TypeFloat, ""},
		{connection.TypeFloat, "1 +"},
		{connection.TypeInt, "1.5"},
		{connection.TypeFloat, `"abc"`},
		{connection.TypeVec3, "[1, 2]"},
		{connection.TypeVec3, "a"},
		{connection.TypeString, "${"},
	}
	for _, tc := range testCases {
		t.Run(tc.typ.String()+"/"+tc.raw, func(t *testing.T) {
			_, err := Parse("p", tc.typ, tc.raw)
			var invalid *InvalidValueError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, "p", invalid.Param)
		})
	}
}

func TestParse_CompoundSplitsComponents(t *testing.T) {
	parsed, err := Parse("size", connection.TypeVec3, "[1, param.s * 2, 3]")
	require.NoError(t, err)
	require.Len(t, parsed.Components, 3)
	assert.Equal(t, "1", parsed.Components[0].Raw)
	assert.Equal(t, "param.s * 2", parsed.Components[1].Raw)
	assert.False(t, parsed.IsLiteral())
	require.Len(t, parsed.References(), 1)
	assert.Equal(t, "s", parsed.References()[0].Name)

	parsed, err = Parse("size", connection.TypeVec3, "2")
	require.NoError(t, err)
	for _, c := range parsed.Components {
		assert.Equal(t, "2", c.Raw)
	}
}

func TestParam_DefaultsAndComponents(t *testing.T) {
	p := mustParam(t, Vec3("size", "[1, 2, 3]"))
	require.True(t, p.IsCompound())
	require.Len(t, p.Components(), 3)
	assert.Equal(t, "sizex", p.Components()[0].Name())
	assert.Equal(t, "sizez", p.Components()[2].Name())
	assert.Equal(t, p, p.Components()[1].Parent())
	assert.Equal(t, "[1, 2, 3]", p.Raw())

	c := mustParam(t, Color("tint", ""))
	assert.Equal(t, "tintr", c.Components()[0].Name())
	assert.Equal(t, "[0, 0, 0]", c.Raw())

	v, err := p.Resolve(context.Background(), &siblingResolver{})
	require.NoError(t, err)
	floats, err := connection.Floats(v, connection.TypeVec3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, floats)
}

func TestParam_ResolveCachesUntilDirty(t *testing.T) {
	size := mustParam(t, Float("size", "2"))
	double := mustParam(t, Float("double", "0"))
	set(t, double, "param.size * 2")
	r := &siblingResolver{params: map[string]*Param{"size": size, "double": double}}

	assert.True(t, double.IsExpression())
	v, err := double.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.NumberIntVal(4)).True())
	assert.False(t, double.IsDirty())

	set(t, size, "5")
	v, err = double.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.NumberIntVal(4)).True(), "clean param keeps its cached value")

	assert.True(t, double.MarkDirty())
	assert.False(t, double.MarkDirty())
	v, err = double.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.NumberIntVal(10)).True())
}

func TestParam_EvaluationErrorIsStoredAndRetried(t *testing.T) {
	p := mustParam(t, Float("offset", "0"))
	sibling := mustParam(t, Float("scale", "1.5"))
	set(t, p, "2 + unresolved_ref")
	r := &siblingResolver{params: map[string]*Param{"offset": p, "scale": sibling}, siblings: map[string]cty.Value{}}

	_, err := p.Resolve(context.Background(), r)
	var evalErr *ExpressionEvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "offset", evalErr.Param)
	assert.Equal(t, "2 + unresolved_ref", evalErr.Expression)
	assert.ErrorIs(t, err, errUnresolved)
	assert.Equal(t, err, p.Err())

	v, err := sibling.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.NumberFloatVal(1.5)).True())

	r.siblings["unresolved_ref"] = cty.NumberIntVal(1)
	v, err = p.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.NumberIntVal(3)).True())
	assert.NoError(t, p.Err())
}

func TestParam_WrongResultType(t *testing.T) {
	p := mustParam(t, Int("count", "1"))
	set(t, p, "param.ratio")
	ratio := mustParam(t, Float("ratio", "0.5"))
	r := &siblingResolver{params: map[string]*Param{"ratio": ratio}}

	_, err := p.Resolve(context.Background(), r)
	var evalErr *ExpressionEvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestParam_StringTemplate(t *testing.T) {
	count := mustParam(t, Int("count", "3"))
	label := mustParam(t, String("label", ""))
	set(t, label, "items: ${param.count}")
	r := &siblingResolver{params: map[string]*Param{"count": count}}

	v, err := label.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "items: 3", v.AsString())
}

func TestParam_ApplyCompound(t *testing.T) {
	p := mustParam(t, Vec3("center", ""))
	set(t, p, "[param.k, 0, -1]")
	k := mustParam(t, Float("k", "7"))
	r := &siblingResolver{params: map[string]*Param{"k": k}}

	assert.True(t, p.IsExpression())
	assert.Equal(t, "[param.k, 0, -1]", p.Raw())
	v, err := p.Resolve(context.Background(), r)
	require.NoError(t, err)
	floats, err := connection.Floats(v, connection.TypeVec3)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 0, -1}, floats)
}

func TestSpec_Validate(t *testing.T) {
	assert.NoError(t, Float("a", "1").Validate())
	assert.NoError(t, Vec3("v", "").Validate())
	assert.Error(t, Float("a", "1 +").Validate())
	assert.Error(t, Spec{Name: "g", Type: connection.TypeGeometry}.Validate())
	assert.Error(t, Spec{Type: connection.TypeFloat}.Validate())
}
