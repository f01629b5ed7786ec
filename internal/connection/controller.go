package connection

import (
	"fmt"
)

// TypeFunc computes the type of a slot from the types currently wired into
// the node's inputs. wired[i] is TypeNone for unconnected slots.
type TypeFunc func(index int, wired []Type) Type

// Declaration describes the IO of a node type.
type Declaration struct {
	// Inputs are the declared input slots. When MaxInputs exceeds
	// len(Inputs), the extra slots reuse the last declared input's type.
	Inputs []Point
	// MinInputs is the number of inputs that must be wired before the node
	// can cook.
	MinInputs int
	// MaxInputs caps the number of input slots. Zero means len(Inputs).
	MaxInputs int
	Outputs   []Point
	// InputType and OutputType override the declared slot types for
	// polymorphic nodes. They are evaluated on every query and never
	// cached.
	InputType  TypeFunc
	OutputType TypeFunc
}

// MaxInputCount returns the effective maximum number of input slots.
func (d Declaration) MaxInputCount() int {
	if d.MaxInputs > 0 {
		return d.MaxInputs
	}
	return len(d.Inputs)
}

// Validate checks the declaration for internal consistency.
func (d Declaration) Validate() error {
	if d.MinInputs < 0 {
		return fmt.Errorf("min inputs must not be negative, got %d", d.MinInputs)
	}
	if d.MaxInputs != 0 && d.MaxInputs < len(d.Inputs) {
		return fmt.Errorf("max inputs %d is less than the %d declared inputs", d.MaxInputs, len(d.Inputs))
	}
	if d.MinInputs > d.MaxInputCount() {
		return fmt.Errorf("min inputs %d exceeds max inputs %d", d.MinInputs, d.MaxInputCount())
	}
	if d.MaxInputCount() > len(d.Inputs) && len(d.Inputs) == 0 && d.InputType == nil {
		return fmt.Errorf("variadic inputs need at least one declared input or an input type function")
	}
	seen := make(map[string]struct{}, len(d.Outputs))
	for _, p := range d.Outputs {
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("duplicate output %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// ExpectedInputType returns the type slot index accepts given the wiring.
func (d Declaration) ExpectedInputType(index int, wired []Type) Type {
	if d.InputType != nil {
		return d.InputType(index, wired)
	}
	switch {
	case index < len(d.Inputs):
		return d.Inputs[index].Type
	case len(d.Inputs) > 0:
		return d.Inputs[len(d.Inputs)-1].Type
	default:
		return TypeAny
	}
}

// OutputTypeAt returns the type produced by output index given the wiring.
func (d Declaration) OutputTypeAt(index int, wired []Type) Type {
	if d.OutputType != nil {
		return d.OutputType(index, wired)
	}
	if index < len(d.Outputs) {
		return d.Outputs[index].Type
	}
	return TypeNone
}

// OutputIndex finds an output by name.
func (d Declaration) OutputIndex(name string) (int, bool) {
	for i, p := range d.Outputs {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (d Declaration) inputName(index int) string {
	if index < len(d.Inputs) && d.Inputs[index].Name != "" {
		return d.Inputs[index].Name
	}
	return fmt.Sprintf("input%d", index)
}

// Controller answers IO questions about one node by combining its type's
// declaration with the node's live wiring.
type Controller struct {
	decl  Declaration
	wired func() []Type
}

// NewController returns a controller. wired is called on every query and
// must return the output types feeding each input slot.
func NewController(decl Declaration, wired func() []Type) *Controller {
	return &Controller{decl: decl, wired: wired}
}

// Declaration returns the declaration the controller was built from.
func (c *Controller) Declaration() Declaration {
	return c.decl
}

// NamedInputConnectionPoints lists the node's input slots with their current
// types. Variadic nodes expose one free slot past the last wired one until
// the maximum is reached.
func (c *Controller) NamedInputConnectionPoints() []Point {
	wired := c.wired()
	lastWired := -1
	for i, t := range wired {
		if t != TypeNone {
			lastWired = i
		}
	}

	count := max(len(c.decl.Inputs), c.decl.MinInputs, lastWired+1)
	if limit := c.decl.MaxInputCount(); count < limit && lastWired+1 == count {
		count++
	}

	points := make([]Point, count)
	for i := range count {
		p := Point{Name: c.decl.inputName(i), Direction: Input}
		if i < len(c.decl.Inputs) {
			p = c.decl.Inputs[i]
			p.Name = c.decl.inputName(i)
		}
		p.Type = c.decl.ExpectedInputType(i, wired)
		points[i] = p
	}
	return points
}

// NamedOutputConnectionPoints lists the node's outputs with their current
// types.
func (c *Controller) NamedOutputConnectionPoints() []Point {
	wired := c.wired()
	points := make([]Point, len(c.decl.Outputs))
	for i, p := range c.decl.Outputs {
		p.Type = c.decl.OutputTypeAt(i, wired)
		points[i] = p
	}
	return points
}

// Hypothetical returns the current wiring with slot index replaced by
// source. A source of TypeNone models a disconnect.
func (c *Controller) Hypothetical(index int, source Type) []Type {
	current := c.wired()
	size := max(len(current), index+1)
	hypo := make([]Type, size)
	copy(hypo, current)
	hypo[index] = source
	return hypo
}

// ValidateWiring checks whether connecting an output of type source to
// input slot index is allowed. Because polymorphic nodes derive slot types
// from their wiring, every other wired slot is re-checked against the
// hypothetical wiring too.
func (c *Controller) ValidateWiring(index int, source Type) error {
	if index < 0 || index >= c.decl.MaxInputCount() {
		return &CardinalityError{Index: index, Min: c.decl.MinInputs, Max: c.decl.MaxInputCount()}
	}
	if source == TypeNone {
		return nil
	}
	return c.ValidateTypes(c.Hypothetical(index, source))
}

// ValidateTypes checks every wired slot in wired against the slot types the
// declaration derives from that same wiring.
func (c *Controller) ValidateTypes(wired []Type) error {
	for i, actual := range wired {
		if actual == TypeNone {
			continue
		}
		expected := c.decl.ExpectedInputType(i, wired)
		if !Compatible(actual, expected) {
			return &TypeMismatchError{
				Slot:     i,
				SlotName: c.decl.inputName(i),
				Expected: expected,
				Actual:   actual,
			}
		}
	}
	return nil
}

// ValidateCardinality checks that the first MinInputs slots are wired.
func (c *Controller) ValidateCardinality() error {
	wired := c.wired()
	for i := range c.decl.MinInputs {
		if i >= len(wired) || wired[i] == TypeNone {
			return &CardinalityError{
				Index:     i,
				Min:       c.decl.MinInputs,
				Max:       c.decl.MaxInputCount(),
				Connected: countWired(wired),
				Missing:   true,
			}
		}
	}
	return nil
}

func countWired(wired []Type) int {
	n := 0
	for _, t := range wired {
		if t != TypeNone {
			n++
		}
	}
	return n
}
