package connection

import "fmt"

// TypeMismatchError is returned when a wire would connect incompatible slots.
type TypeMismatchError struct {
	Node     string
	Slot     int
	SlotName string
	Expected Type
	Actual   Type
}

func (e *TypeMismatchError) Error() string {
	prefix := ""
	if e.Node != "" {
		prefix = e.Node + ": "
	}
	return fmt.Sprintf("%sinput %d (%s) expects %s, got %s", prefix, e.Slot, e.SlotName, e.Expected, e.Actual)
}

// CardinalityError is returned when an input index is outside the node's
// slot range, or when a required input is unwired at cook time.
type CardinalityError struct {
	Node      string
	Index     int
	Min       int
	Max       int
	Connected int
	Missing   bool
}

func (e *CardinalityError) Error() string {
	prefix := ""
	if e.Node != "" {
		prefix = e.Node + ": "
	}
	if e.Missing {
		return fmt.Sprintf("%sinput %d is required (needs at least %d inputs, %d connected)", prefix, e.Index, e.Min, e.Connected)
	}
	return fmt.Sprintf("%sinput index %d is out of range (accepts %d..%d inputs)", prefix, e.Index, e.Min, e.Max)
}
