package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParseType(t *testing.T) {
	for ty, name := range typeNames {
		if ty == TypeNone {
			continue
		}
		got, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, ty, got)
	}

	_, err := ParseType("none")
	assert.Error(t, err)
	_, err = ParseType("matrix")
	assert.Error(t, err)
}

func TestCompatible(t *testing.T) {
	testCases := []struct {
		from, to Type
		want     bool
	}{
		{TypeFloat, TypeFloat, true},
		{TypeAny, TypeGeometry, true},
		{TypeGeometry, TypeAny, true},
		{TypeInt, TypeFloat, true},
		{TypeFloat, TypeInt, false},
		{TypeFloat, TypeVec3, true},
		{TypeInt, TypeVec2, true},
		{TypeFloat, TypeColor, false},
		{TypeVec3, TypeColor, true},
		{TypeColor, TypeVec3, true},
		{TypeVec2, TypeVec3, false},
		{TypeFloat, TypeString, true},
		{TypeBool, TypeString, true},
		{TypeString, TypeFloat, false},
		{TypeInt, TypeBool, true},
		{TypeGeometry, TypeTexture, false},
		{TypeNone, TypeAny, false},
	}
	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Compatible(tc.from, tc.to))
		})
	}
}

func TestCoerce(t *testing.T) {
	t.Run("int rejects fractions", func(t *testing.T) {
		_, err := Coerce(cty.NumberFloatVal(1.5), TypeInt)
		assert.Error(t, err)

		v, err := Coerce(cty.StringVal("4"), TypeInt)
		require.NoError(t, err)
		assert.True(t, v.Equals(cty.NumberIntVal(4)).True())
	})

	t.Run("scalar broadcasts into vector", func(t *testing.T) {
		v, err := Coerce(cty.NumberIntVal(2), TypeVec3)
		require.NoError(t, err)
		floats, err := Floats(v, TypeVec3)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 2, 2}, floats)
	})

	t.Run("tuple length must match", func(t *testing.T) {
		_, err := Coerce(FloatsVal(1, 2), TypeVec3)
		assert.ErrorContains(t, err, "requires 3 components")
	})

	t.Run("number to bool", func(t *testing.T) {
		v, err := Coerce(cty.NumberIntVal(0), TypeBool)
		require.NoError(t, err)
		assert.Equal(t, cty.False, v)
	})

	t.Run("null is rejected", func(t *testing.T) {
		_, err := Coerce(cty.NullVal(cty.Number), TypeFloat)
		assert.Error(t, err)
	})

	t.Run("any passes through", func(t *testing.T) {
		v, err := Coerce(cty.StringVal("x"), TypeAny)
		require.NoError(t, err)
		assert.Equal(t, cty.StringVal("x"), v)
	})
}

func TestConforms(t *testing.T) {
	assert.NoError(t, Conforms(cty.NumberIntVal(3), TypeInt))
	assert.Error(t, Conforms(cty.NumberFloatVal(3.5), TypeInt))
	assert.Error(t, Conforms(cty.StringVal("3"), TypeFloat))
	assert.NoError(t, Conforms(FloatsVal(1, 2, 3), TypeColor))
	assert.Error(t, Conforms(FloatsVal(1, 2), TypeVec3))

	geo := cty.ObjectVal(map[string]cty.Value{
		"points": cty.ListVal([]cty.Value{FloatsVal(0, 0, 0)}),
	})
	assert.NoError(t, Conforms(geo, TypeGeometry))
	assert.Error(t, Conforms(cty.NumberIntVal(1), TypeGeometry))
}

func TestComponentSuffixes(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, TypeVec2.ComponentSuffixes())
	assert.Equal(t, []string{"r", "g", "b"}, TypeColor.ComponentSuffixes())
	assert.Nil(t, TypeFloat.ComponentSuffixes())
}

func TestMarshalJSON(t *testing.T) {
	b, err := MarshalJSON(FloatsVal(1, 2.5, 3))
	require.NoError(t, err)
	require.Equal(t, "[1,2.5,3]", string(b))

	b, err = MarshalJSON(cty.NullVal(cty.DynamicPseudoType))
	require.NoError(t, err)
	require.Equal(t, "null", string(b))

	_, err = MarshalJSON(cty.UnknownVal(cty.Number))
	require.Error(t, err)
}
