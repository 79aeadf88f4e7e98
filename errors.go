package smoothmesh

import (
	"errors"
	"fmt"

	"github.com/soypat/smoothmesh/mesh"
)

// ErrInvalidParameter is matched by every *InvalidParameterError through errors.Is.
var ErrInvalidParameter = errors.New("smoothmesh: invalid parameter")

// ErrDegenerateTopology is matched by every *DegenerateTopologyError through errors.Is.
var ErrDegenerateTopology = mesh.ErrDegenerateTopology

// DegenerateTopologyError is returned when a vertex of the input topology has no neighbors.
type DegenerateTopologyError = mesh.DegenerateTopologyError

// InvalidParameterError reports a parameter or buffer that would make the
// smoothing result undefined. It is detected before any position is written.
type InvalidParameterError struct {
	// Param names the offending parameter or buffer.
	Param string
	// Value is the rejected value, or the rejected length for buffers.
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("smoothmesh: invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func checkLen(param string, got, want int) error {
	if got != want {
		return &InvalidParameterError{Param: param, Value: got, Reason: fmt.Sprintf("length must match vertex count %d", want)}
	}
	return nil
}
