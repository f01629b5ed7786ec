package connection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sameTypeDecl is a generic node: the first wired input decides the type of
// every other slot and of the output.
func sameTypeDecl() Declaration {
	first := func(wired []Type) Type {
		for _, t := range wired {
			if t != TypeNone {
				return t
			}
		}
		return TypeAny
	}
	return Declaration{
		Inputs:     []Point{NewInput("input0", TypeAny)},
		MinInputs:  1,
		MaxInputs:  4,
		Outputs:    []Point{NewOutput("out", TypeAny)},
		InputType:  func(_ int, wired []Type) Type { return first(wired) },
		OutputType: func(_ int, wired []Type) Type { return first(wired) },
	}
}

func TestController_NamedInputConnectionPoints(t *testing.T) {
	wired := []Type{}
	c := NewController(sameTypeDecl(), func() []Type { return wired })

	points := c.NamedInputConnectionPoints()
	require.Len(t, points, 1)
	assert.Equal(t, "input0", points[0].Name)
	assert.Equal(t, TypeAny, points[0].Type)

	wired = []Type{TypeFloat, TypeFloat}
	points = c.NamedInputConnectionPoints()
	require.Len(t, points, 3)
	assert.Equal(t, "input2", points[2].Name)
	assert.Equal(t, TypeFloat, points[2].Type)

	wired = []Type{TypeFloat, TypeFloat, TypeFloat, TypeFloat}
	assert.Len(t, c.NamedInputConnectionPoints(), 4)
}

func TestController_OutputTypeFollowsWiring(t *testing.T) {
	wired := []Type{}
	c := NewController(sameTypeDecl(), func() []Type { return wired })

	assert.Equal(t, TypeAny, c.NamedOutputConnectionPoints()[0].Type)
	wired = []Type{TypeVec3}
	assert.Equal(t, TypeVec3, c.NamedOutputConnectionPoints()[0].Type)
	wired = []Type{TypeString}
	assert.Equal(t, TypeString, c.NamedOutputConnectionPoints()[0].Type)
}

func TestController_ValidateWiring(t *testing.T) {
	decl := Declaration{
		Inputs:  []Point{NewInput("a", TypeFloat), NewInput("b", TypeVec3)},
		Outputs: []Point{NewOutput("out", TypeVec3)},
	}
	c := NewController(decl, func() []Type { return nil })

	assert.NoError(t, c.ValidateWiring(0, TypeInt))
	assert.NoError(t, c.ValidateWiring(1, TypeFloat))

	err := c.ValidateWiring(0, TypeGeometry)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 0, mismatch.Slot)
	assert.Equal(t, "a", mismatch.SlotName)
	assert.Equal(t, TypeFloat, mismatch.Expected)
	assert.Equal(t, TypeGeometry, mismatch.Actual)

	err = c.ValidateWiring(2, TypeFloat)
	var card *CardinalityError
	require.True(t, errors.As(err, &card))
	assert.Equal(t, 2, card.Index)
}

func TestController_ValidateWiringRechecksPolymorphicSlots(t *testing.T) {
	wired := []Type{TypeNone, TypeString}
	c := NewController(sameTypeDecl(), func() []Type { return wired })

	// Wiring a geometry into slot 0 would make slot 1 expect geometry.
	err := c.ValidateWiring(0, TypeGeometry)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Slot)
	assert.Equal(t, TypeGeometry, mismatch.Expected)

	assert.NoError(t, c.ValidateWiring(0, TypeString))
	assert.NoError(t, c.ValidateWiring(0, TypeNone))
}

func TestController_ValidateCardinality(t *testing.T) {
	wired := []Type{}
	c := NewController(sameTypeDecl(), func() []Type { return wired })

	var card *CardinalityError
	require.True(t, errors.As(c.ValidateCardinality(), &card))
	assert.True(t, card.Missing)

	wired = []Type{TypeFloat}
	assert.NoError(t, c.ValidateCardinality())
}

func TestDeclaration_Validate(t *testing.T) {
	assert.NoError(t, sameTypeDecl().Validate())
	assert.Error(t, Declaration{MinInputs: 2, Inputs: []Point{NewInput("a", TypeAny)}}.Validate())
	assert.Error(t, Declaration{MaxInputs: 3}.Validate())
	assert.Error(t, Declaration{Outputs: []Point{NewOutput("o", TypeAny), NewOutput("o", TypeAny)}}.Validate())
}
