package mesh

import (
	"errors"
	"strconv"
)

// ErrDegenerateTopology is matched by every *DegenerateTopologyError through errors.Is.
var ErrDegenerateTopology = errors.New("mesh: degenerate topology")

// DegenerateTopologyError is returned when a vertex has no neighbors.
// Neighbor count is a divisor during relaxation so this is never silently skipped.
type DegenerateTopologyError struct {
	// Vertex is the index of the first vertex found without neighbors.
	Vertex int
}

func (e *DegenerateTopologyError) Error() string {
	return "mesh: vertex " + strconv.Itoa(e.Vertex) + " has no neighbors"
}

func (e *DegenerateTopologyError) Is(target error) bool {
	return target == ErrDegenerateTopology
}
