package smoothmesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/soypat/smoothmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Input is what a host hands the Deformer on every evaluation.
type Input struct {
	// Positions are the vertex positions before smoothing.
	Positions []r3.Vec
	// Topology is the connectivity of the vertices.
	Topology mesh.Topology
	// Version identifies Topology's connectivity. Hosts change it whenever
	// the connected mesh changes; adjacency is rebuilt only then.
	Version uint64
	// Weights are the authored per-vertex weights. nil means 1 for every vertex.
	Weights []float64
	// Normals are the vertex normals before smoothing, used when Offset is not zero.
	// If nil they are calculated from Positions when Topology provides faces.
	Normals []r3.Vec
}

// Deformer is a smoothing engine instance for one mesh stream. It keeps the
// mesh adjacency between evaluations. The zero value is ready to use and
// Deformer is safe for concurrent use.
type Deformer struct {
	// Workers is the number of goroutines a smoothing pass is split across.
	Workers int

	mu      sync.Mutex
	cache   mesh.AdjacencyCache
	relaxer Relaxer
}

// TopologyChanged marks the cached adjacency stale. Hosts call it when the
// input mesh is reconnected or replaced.
func (d *Deformer) TopologyChanged() {
	d.cache.Invalidate()
}

// State returns the state of the deformer's adjacency cache.
func (d *Deformer) State() mesh.CacheState {
	return d.cache.State()
}

// Deform returns smoothed positions for in. Either the full result is
// returned or an error and no positions; in.Positions is never modified.
//
// When p.Envelope*p.Smooth <= 0 the positions are returned unchanged
// and neither adjacency nor offset are evaluated.
func (d *Deformer) Deform(p Params, in Input) ([]r3.Vec, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.Topology == nil {
		return nil, &InvalidParameterError{Param: "Topology", Value: nil, Reason: "is required"}
	}
	n := len(in.Positions)
	if err := checkLen("Topology", in.Topology.NumVertices(), n); err != nil {
		return nil, err
	}
	if in.Weights != nil {
		if err := checkLen("Weights", len(in.Weights), n); err != nil {
			return nil, err
		}
		for i, w := range in.Weights {
			if !isFinite(w) {
				return nil, &InvalidParameterError{Param: "Weights", Value: w, Reason: fmt.Sprintf("weight of vertex %d must be finite", i)}
			}
		}
	}
	if !p.active() {
		out := make([]r3.Vec, n)
		copy(out, in.Positions)
		return out, nil
	}
	var normals []r3.Vec
	if p.Offset != 0 {
		var err error
		normals, err = originalNormals(in)
		if err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	adj, err := d.cache.Ensure(in.Topology, in.Version)
	if err != nil {
		return nil, err
	}
	var weights []float64
	if in.Weights != nil {
		weights = ResolveWeights(in.Weights, p.Envelope)
	} else {
		weights = ResolveWeightsN(n, p.Envelope)
	}
	d.relaxer.Workers = d.Workers
	out, err := d.relaxer.Relax(in.Positions, adj, weights, p)
	if err != nil {
		return nil, err
	}
	err = ApplyOffset(out, normals, weights, p.Offset)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// faceTopology is implemented by topologies that know their polygons.
type faceTopology interface {
	Faces() [][]int
}

func originalNormals(in Input) ([]r3.Vec, error) {
	if in.Normals != nil {
		if err := checkLen("Normals", len(in.Normals), len(in.Positions)); err != nil {
			return nil, err
		}
		return in.Normals, nil
	}
	var faces [][]int
	switch t := in.Topology.(type) {
	case *mesh.Mesh:
		faces = t.Topology().Faces()
	case faceTopology:
		faces = t.Faces()
	default:
		return nil, &InvalidParameterError{Param: "Normals", Value: nil,
			Reason: "required when offsetting a topology without faces"}
	}
	if len(faces) == 0 {
		return nil, errors.New("smoothmesh: topology has no faces to calculate normals from")
	}
	return mesh.VertexNormals(in.Positions, faces), nil
}
