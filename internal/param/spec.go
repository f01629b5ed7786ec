package param

import (
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
)

// Spec declares a parameter on a node type.
type Spec struct {
	Name        string
	Type        connection.Type
	Default     string
	Description string
}

// Float declares a float parameter.
func Float(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeFloat, Default: def}
}

// Int declares an int parameter.
func Int(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeInt, Default: def}
}

// Bool declares a bool parameter.
func Bool(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeBool, Default: def}
}

// String declares a string parameter. Its raw input is a template.
func String(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeString, Default: def}
}

// Vec3 declares a compound vec3 parameter.
func Vec3(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeVec3, Default: def}
}

// Color declares a compound color parameter.
func Color(name, def string) Spec {
	return Spec{Name: name, Type: connection.TypeColor, Default: def}
}

// Describe returns a copy of s with a description.
func (s Spec) Describe(text string) Spec {
	s.Description = text
	return s
}

// Validate checks that the type can back a parameter and the default parses.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("parameter name must not be empty")
	}
	if !s.Type.IsValueType() {
		return fmt.Errorf("parameter %q: %s cannot be used as a parameter type", s.Name, s.Type)
	}
	if _, err := Parse(s.Name, s.Type, s.DefaultRaw()); err != nil {
		return fmt.Errorf("parameter %q default: %w", s.Name, err)
	}
	return nil
}

// DefaultRaw returns the default raw input, falling back to the zero value
// of the type when no default is declared.
func (s Spec) DefaultRaw() string {
	if s.Default != "" || s.Type == connection.TypeString {
		return s.Default
	}
	if s.Type == connection.TypeBool {
		return "false"
	}
	return "0"
}
