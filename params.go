// Package smoothmesh relaxes polygon mesh vertex positions toward their
// topological neighbors using Laplacian or volume preserving Taubin smoothing,
// with per-vertex weights and an optional offset along the original normals.
package smoothmesh

import (
	"math"
	"strconv"
	"strings"
)

// Mode selects the smoothing behavior.
type Mode uint8

const (
	// Laplace moves every vertex toward the average of its neighbors.
	Laplace Mode = iota
	// Taubin alternates a shrinking Laplace pass with an inflating pass
	// so that the smoothed mesh keeps most of its volume.
	Taubin
)

func (m Mode) String() string {
	switch m {
	case Laplace:
		return "laplace"
	case Taubin:
		return "taubin"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode parses a mode name, case insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "laplace", "laplacian":
		return Laplace, nil
	case "taubin":
		return Taubin, nil
	}
	return 0, &InvalidParameterError{Param: "Mode", Value: s, Reason: "want laplace or taubin"}
}

// Params are the tunable inputs of a smoothing invocation.
type Params struct {
	Mode Mode
	// Iterations is the number of smoothing iterations. A Taubin iteration
	// is made up of two passes.
	Iterations int
	// Smooth is the Laplace factor in [0,1]: how far a vertex moves
	// toward its neighbor average per pass.
	Smooth float64
	// Volume is the Taubin volume factor in [0,1]. Ignored in Laplace mode.
	Volume float64
	// Offset is the distance vertices are pushed along their original normals
	// after smoothing. Negative values push inward.
	Offset float64
	// Envelope scales every per-vertex weight.
	Envelope float64
}

// DefaultParams returns the parameters a newly created smoothing node starts with.
func DefaultParams() Params {
	return Params{
		Mode:       Laplace,
		Iterations: 1,
		Smooth:     0.5,
		Volume:     0.1,
		Offset:     0,
		Envelope:   1,
	}
}

// Validate checks the parameters are within their domains and that the
// Taubin factor is finite.
func (p Params) Validate() error {
	switch {
	case p.Mode > Taubin:
		return &InvalidParameterError{Param: "Mode", Value: p.Mode, Reason: "unknown mode"}
	case p.Iterations < 0:
		return &InvalidParameterError{Param: "Iterations", Value: p.Iterations, Reason: "must be non-negative"}
	case !inUnit(p.Smooth):
		return &InvalidParameterError{Param: "Smooth", Value: p.Smooth, Reason: "must be in [0,1]"}
	case !inUnit(p.Volume):
		return &InvalidParameterError{Param: "Volume", Value: p.Volume, Reason: "must be in [0,1]"}
	case !isFinite(p.Envelope):
		return &InvalidParameterError{Param: "Envelope", Value: p.Envelope, Reason: "must be finite"}
	case !isFinite(p.Offset):
		return &InvalidParameterError{Param: "Offset", Value: p.Offset, Reason: "must be finite"}
	}
	if p.active() {
		_, err := p.schedule()
		return err
	}
	return nil
}

// active reports whether smoothing does anything at all. When it does not,
// the whole invocation is skipped, offset included.
func (p Params) active() bool {
	return p.Envelope*p.Smooth > 0
}

func (p Params) schedule() (schedule, error) {
	return modeSchedules[p.Mode](p)
}

// schedule holds the factors of the passes of one smoothing invocation.
type schedule struct {
	factors [2]float64
	// alternating is set when passes alternate factors[0] and factors[1].
	alternating bool
}

// modeSchedules maps each Mode to its factor computation.
var modeSchedules = [...]func(Params) (schedule, error){
	Laplace: laplaceSchedule,
	Taubin:  taubinSchedule,
}

func laplaceSchedule(p Params) (schedule, error) {
	return schedule{factors: [2]float64{p.Smooth}}, nil
}

// taubinSchedule computes the inflating factor mu = 1/(volume - 1/lambda)
// that follows every shrinking lambda pass.
func taubinSchedule(p Params) (schedule, error) {
	mu := 1 / (p.Volume - 1/p.Smooth)
	if !isFinite(mu) {
		return schedule{}, &InvalidParameterError{Param: "Volume", Value: p.Volume,
			Reason: "Taubin factor 1/(volume-1/smooth) is not finite for smooth=" + strconv.FormatFloat(p.Smooth, 'g', -1, 64)}
	}
	return schedule{
		factors:     [2]float64{p.Smooth, mu},
		alternating: mu != 0,
	}, nil
}

// passes returns the number of averaging passes for the requested iterations.
func (s schedule) passes(iterations int) int {
	if s.alternating {
		return 2 * iterations
	}
	return iterations
}

// factor returns the factor of the given pass, counting from 0.
func (s schedule) factor(pass int) float64 {
	if s.alternating {
		return s.factors[pass%2]
	}
	return s.factors[0]
}

func inUnit(f float64) bool { return f >= 0 && f <= 1 }

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
