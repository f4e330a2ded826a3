package rectifier

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned when a parameter set is outside the
// range the simulator can compute.
var ErrInvalidParameter = errors.New("rectifier: invalid parameter")

// ParameterError names the offending field of a rejected parameter set.
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("rectifier: invalid %s (%g): %s", e.Field, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}
