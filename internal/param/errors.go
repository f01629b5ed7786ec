package param

import (
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
)

// InvalidValueError is returned when raw input is neither a valid literal
// for the parameter's type nor a parseable expression.
type InvalidValueError struct {
	Param string
	Raw   string
	Type  connection.Type
	Err   error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s parameter %q: %v", e.Raw, e.Type, e.Param, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// ExpressionEvaluationError is stored on a parameter whose expression failed
// to evaluate or produced a value of the wrong type.
type ExpressionEvaluationError struct {
	Param      string
	Expression string
	Err        error
}

func (e *ExpressionEvaluationError) Error() string {
	return fmt.Sprintf("evaluate parameter %q (%s): %v", e.Param, e.Expression, e.Err)
}

func (e *ExpressionEvaluationError) Unwrap() error { return e.Err }
