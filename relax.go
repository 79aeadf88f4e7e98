package smoothmesh

import (
	"github.com/soypat/smoothmesh/internal/d3"
	"github.com/soypat/smoothmesh/mesh"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// skipWeight is the weight at or below which a vertex is not averaged.
const skipWeight = 0.01

// minParallelVertices is the smallest vertex count split across workers.
const minParallelVertices = 1024

// Relaxer runs smoothing passes over vertex positions. Its two position
// buffers are reused across calls so a Relaxer must not be used concurrently.
// The zero value is ready to use.
type Relaxer struct {
	// Workers is the number of goroutines each pass is split across.
	// Values below 2 run passes on the calling goroutine.
	Workers int

	buf [2][]r3.Vec
	// onPass is called before every pass with the pass number and its factor.
	onPass func(pass int, factor float64)
}

// Relax is shorthand for relaxing with a new single threaded Relaxer.
func Relax(positions []r3.Vec, adj mesh.Adjacency, weights []float64, p Params) ([]r3.Vec, error) {
	var r Relaxer
	return r.Relax(positions, adj, weights, p)
}

// Relax returns the positions after running p.Iterations smoothing iterations.
// adj must have been built by mesh.BuildAdjacency for the same vertices and
// weights must be resolved (see ResolveWeights). positions is not modified.
//
// Every pass reads only the positions the previous pass produced: each vertex
// with weight above 0.01 moves toward the average of its neighbors by
// factor*weight of the distance; every other vertex keeps its position.
func (r *Relaxer) Relax(positions []r3.Vec, adj mesh.Adjacency, weights []float64, p Params) ([]r3.Vec, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(positions)
	if err := checkLen("Weights", len(weights), n); err != nil {
		return nil, err
	}
	if err := checkLen("Adjacency", adj.Len(), n); err != nil {
		return nil, err
	}
	if err := checkFinite(positions); err != nil {
		return nil, err
	}
	out := make([]r3.Vec, n)
	if !p.active() {
		copy(out, positions)
		return out, nil
	}
	sched, err := p.schedule()
	if err != nil {
		return nil, err
	}
	cur, next := r.buffer(0, n), r.buffer(1, n)
	copy(cur, positions)
	passes := sched.passes(p.Iterations)
	for pass := 0; pass < passes; pass++ {
		factor := sched.factor(pass)
		if r.onPass != nil {
			r.onPass(pass, factor)
		}
		if err := r.pass(next, cur, adj, weights, factor); err != nil {
			return nil, err
		}
		cur, next = next, cur
	}
	copy(out, cur)
	return out, nil
}

func (r *Relaxer) buffer(k, n int) []r3.Vec {
	if cap(r.buf[k]) < n {
		r.buf[k] = make([]r3.Vec, n)
	}
	r.buf[k] = r.buf[k][:n]
	return r.buf[k]
}

// pass writes one averaging pass of src into dst.
func (r *Relaxer) pass(dst, src []r3.Vec, adj mesh.Adjacency, weights []float64, factor float64) error {
	n := len(src)
	if r.Workers < 2 || n < minParallelVertices {
		return relaxRange(dst, src, adj, weights, factor, 0, n)
	}
	var g errgroup.Group
	chunk := (n + r.Workers - 1) / r.Workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			return relaxRange(dst, src, adj, weights, factor, start, end)
		})
	}
	return g.Wait()
}

func relaxRange(dst, src []r3.Vec, adj mesh.Adjacency, weights []float64, factor float64, start, end int) error {
	for i := start; i < end; i++ {
		w := weights[i]
		if w <= skipWeight {
			dst[i] = src[i]
			continue
		}
		neighbors := adj[i]
		var avg r3.Vec
		for _, j := range neighbors {
			avg = r3.Add(avg, src[j])
		}
		nn := float64(len(neighbors))
		avg = r3.Vec{X: avg.X / nn, Y: avg.Y / nn, Z: avg.Z / nn}
		delta := r3.Sub(avg, src[i])
		dst[i] = r3.Add(src[i], r3.Scale(factor*w, delta))
		if !d3.IsFinite(dst[i]) {
			return &InvalidParameterError{Param: "Positions", Value: i, Reason: "smoothing produced a non-finite vertex position"}
		}
	}
	return nil
}

func checkFinite(positions []r3.Vec) error {
	for i := range positions {
		if !d3.IsFinite(positions[i]) {
			return &InvalidParameterError{Param: "Positions", Value: i, Reason: "vertex position is not finite"}
		}
	}
	return nil
}
