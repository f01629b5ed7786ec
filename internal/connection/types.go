package connection

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Type is the declared type of a connection point or parameter.
type Type int

const (
	// TypeNone marks an unconnected slot. It is never a declared type.
	TypeNone Type = iota
	TypeAny
	TypeFloat
	TypeInt
	TypeBool
	TypeString
	TypeVec2
	TypeVec3
	TypeVec4
	TypeColor
	TypeGeometry
	TypeTexture
	TypeTrigger
)

var typeNames = map[Type]string{
	TypeNone:     "none",
	TypeAny:      "any",
	TypeFloat:    "float",
	TypeInt:      "int",
	TypeBool:     "bool",
	TypeString:   "string",
	TypeVec2:     "vec2",
	TypeVec3:     "vec3",
	TypeVec4:     "vec4",
	TypeColor:    "color",
	TypeGeometry: "geometry",
	TypeTexture:  "texture",
	TypeTrigger:  "trigger",
}

// String returns the lower-case name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType converts a type name into a Type.
func ParseType(name string) (Type, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == lowered && t != TypeNone {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown connection type %q", name)
}

// Point3Type is the cty type of a single geometry point.
var Point3Type = cty.Tuple([]cty.Type{cty.Number, cty.Number, cty.Number})

// GeometryType is the cty type carried by geometry connections.
var GeometryType = cty.Object(map[string]cty.Type{
	"points": cty.List(Point3Type),
})

// TextureType is the cty type carried by texture connections.
var TextureType = cty.Object(map[string]cty.Type{
	"width":  cty.Number,
	"height": cty.Number,
	"pixels": cty.List(cty.Number),
})

// CtyType returns the cty type constraint values of this type must satisfy.
func (t Type) CtyType() cty.Type {
	switch t {
	case TypeFloat, TypeInt:
		return cty.Number
	case TypeBool:
		return cty.Bool
	case TypeString:
		return cty.String
	case TypeVec2, TypeVec3, TypeVec4, TypeColor:
		elems := make([]cty.Type, t.Components())
		for i := range elems {
			elems[i] = cty.Number
		}
		return cty.Tuple(elems)
	case TypeGeometry:
		return GeometryType
	case TypeTexture:
		return TextureType
	case TypeTrigger:
		return cty.EmptyObject
	default:
		return cty.DynamicPseudoType
	}
}

// Components returns the number of float components of vector-like types and
// zero for every other type.
func (t Type) Components() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3, TypeColor:
		return 3
	case TypeVec4:
		return 4
	default:
		return 0
	}
}

// ComponentSuffixes returns the suffixes used to name the components of a
// compound parameter of this type.
func (t Type) ComponentSuffixes() []string {
	switch t {
	case TypeColor:
		return []string{"r", "g", "b"}
	case TypeVec2, TypeVec3, TypeVec4:
		return []string{"x", "y", "z", "w"}[:t.Components()]
	default:
		return nil
	}
}

// IsValueType reports whether the type can be used for a parameter.
func (t Type) IsValueType() bool {
	switch t {
	case TypeFloat, TypeInt, TypeBool, TypeString, TypeVec2, TypeVec3, TypeVec4, TypeColor:
		return true
	default:
		return false
	}
}

func (t Type) isScalarNumber() bool {
	return t == TypeFloat || t == TypeInt
}

// Compatible reports whether an output of type from may feed an input of
// type to. Identical types and `any` always match; the remaining pairs are
// explicit conversions.
func Compatible(from, to Type) bool {
	if from == TypeNone || to == TypeNone {
		return false
	}
	if from == to || from == TypeAny || to == TypeAny {
		return true
	}
	switch {
	case from == TypeInt && to == TypeFloat:
		return true
	case from == TypeInt && to == TypeBool:
		return true
	case from.isScalarNumber() && to.Components() > 0 && to != TypeColor:
		return true
	case from == TypeVec3 && to == TypeColor, from == TypeColor && to == TypeVec3:
		return true
	case to == TypeString && (from.isScalarNumber() || from == TypeBool):
		return true
	}
	return false
}

// Coerce converts an arbitrary cty value into a value conforming to t.
// Scalars are broadcast into vector types; numbers are checked for
// integrality when t is TypeInt.
func Coerce(v cty.Value, t Type) (cty.Value, error) {
	if t == TypeAny || t == TypeNone {
		return v, nil
	}
	if v.IsNull() {
		return cty.NilVal, fmt.Errorf("null value cannot be used as %s", t)
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("value is not known yet")
	}

	switch t {
	case TypeFloat:
		return convert.Convert(v, cty.Number)
	case TypeInt:
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return cty.NilVal, err
		}
		if !n.AsBigFloat().IsInt() {
			return cty.NilVal, fmt.Errorf("%s is not a whole number", n.AsBigFloat().Text('g', -1))
		}
		return n, nil
	case TypeBool:
		if v.Type() == cty.Number {
			return cty.BoolVal(v.AsBigFloat().Sign() != 0), nil
		}
		return convert.Convert(v, cty.Bool)
	case TypeString:
		return convert.Convert(v, cty.String)
	case TypeVec2, TypeVec3, TypeVec4, TypeColor:
		return coerceVector(v, t)
	case TypeTrigger:
		return cty.EmptyObjectVal, nil
	default:
		return convert.Convert(v, t.CtyType())
	}
}

func coerceVector(v cty.Value, t Type) (cty.Value, error) {
	n := t.Components()
	elems := make([]cty.Value, 0, n)

	ty := v.Type()
	switch {
	case ty == cty.Number || ty == cty.String || ty == cty.Bool:
		scalar, err := Coerce(v, TypeFloat)
		if err != nil {
			return cty.NilVal, err
		}
		for range n {
			elems = append(elems, scalar)
		}
	case ty.IsTupleType() || ty.IsListType():
		if v.LengthInt() != n {
			return cty.NilVal, fmt.Errorf("%s requires %d components, got %d", t, n, v.LengthInt())
		}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			num, err := Coerce(ev, TypeFloat)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, num)
		}
	default:
		return cty.NilVal, fmt.Errorf("cannot use %s value as %s", ty.FriendlyName(), t)
	}
	return cty.TupleVal(elems), nil
}

// Conforms checks that v already has the shape required by t without
// broadcasting or parsing strings.
func Conforms(v cty.Value, t Type) error {
	if t == TypeAny || t == TypeNone {
		return nil
	}
	if v.IsNull() {
		return fmt.Errorf("expected %s, got null", t)
	}
	want := t.CtyType()
	if v.Type().Equals(want) {
		if t == TypeInt && v.IsKnown() && !v.AsBigFloat().IsInt() {
			return fmt.Errorf("expected int, got %s", v.AsBigFloat().Text('g', -1))
		}
		return nil
	}
	if t.Components() > 0 && (v.Type().IsListType() || v.Type().IsTupleType()) {
		if _, err := coerceVector(v, t); err == nil {
			return nil
		}
	}
	if want.IsObjectType() && v.Type().IsObjectType() {
		if _, err := convert.Convert(v, want); err == nil {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %s", t, v.Type().FriendlyName())
}

// Float converts a number value to float64.
func Float(v cty.Value) (float64, error) {
	n, err := Coerce(v, TypeFloat)
	if err != nil {
		return 0, err
	}
	f, _ := n.AsBigFloat().Float64()
	return f, nil
}

// Floats converts a vector-like value to its float components.
func Floats(v cty.Value, t Type) ([]float64, error) {
	vec, err := Coerce(v, t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, t.Components())
	for it := vec.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		f, _ := ev.AsBigFloat().Float64()
		out = append(out, f)
	}
	return out, nil
}

// FloatsVal builds a tuple value from float components.
func FloatsVal(components ...float64) cty.Value {
	elems := make([]cty.Value, len(components))
	for i, c := range components {
		elems[i] = cty.NumberVal(new(big.Float).SetFloat64(c))
	}
	return cty.TupleVal(elems)
}

// MarshalJSON renders a value as compact JSON in its own type, without the
// type wrapper cty adds for dynamic values. Null renders as null.
func MarshalJSON(v cty.Value) ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known yet")
	}
	return ctyjson.Marshal(v, v.Type())
}
