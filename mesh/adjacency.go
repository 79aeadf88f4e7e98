package mesh

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
)

// Adjacency contains for every vertex the sorted set of vertices it is
// directly connected to. No set contains its own vertex and no set is empty.
type Adjacency [][]int

// Len returns the number of vertices in the adjacency.
func (a Adjacency) Len() int { return len(a) }

// Neighbors returns the neighbor set of vertex i. Do not modify.
func (a Adjacency) Neighbors(i int) []int { return a[i] }

// BuildAdjacency visits every vertex of t once and collects the set of
// vertices connected to it. Self references and duplicates are dropped.
// It fails with *DegenerateTopologyError on the first vertex left without neighbors
// and with a plain error if a connection references a vertex out of range.
func BuildAdjacency(t Topology) (Adjacency, error) {
	nv := t.NumVertices()
	adj := make(Adjacency, nv)
	var scratch []int
	for i := 0; i < nv; i++ {
		scratch = t.AppendConnected(scratch[:0], i)
		for _, v := range scratch {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("mesh: vertex %d connected to vertex %d out of range [0,%d)", i, v, nv)
			}
		}
		scratch = slices.DeleteFunc(scratch, func(v int) bool { return v == i })
		slices.Sort(scratch)
		scratch = slices.Compact(scratch)
		if len(scratch) == 0 {
			return nil, &DegenerateTopologyError{Vertex: i}
		}
		adj[i] = slices.Clone(scratch)
	}
	return adj, nil
}

// CacheState is the coarse state of an AdjacencyCache.
type CacheState uint8

const (
	NeighborsStale CacheState = iota
	NeighborsValid
)

func (s CacheState) String() string {
	switch s {
	case NeighborsStale:
		return "stale"
	case NeighborsValid:
		return "valid"
	}
	return "CacheState(" + strconv.Itoa(int(s)) + ")"
}

// AdjacencyCache keeps the adjacency of one mesh stream between invocations.
// It is rebuilt only when the caller's topology version differs from the
// stored stamp, when Invalidate was called or when the vertex count changed.
// The zero value is ready to use and stale.
//
// AdjacencyCache is safe for concurrent use: rebuilds run outside the lock and
// are published atomically. A rebuild that overlaps an Invalidate is not published.
type AdjacencyCache struct {
	mu      sync.RWMutex
	adj     Adjacency
	version uint64
	valid   bool
	// gen is incremented by every Invalidate.
	gen uint64
}

// Ensure returns the adjacency of t, rebuilding it if the cache is stale for version.
// On error the cache is left stale and the previously cached adjacency is discarded.
// If Invalidate is called while rebuilding, the rebuilt adjacency is returned
// but not cached.
func (c *AdjacencyCache) Ensure(t Topology, version uint64) (Adjacency, error) {
	nv := t.NumVertices()
	c.mu.RLock()
	if c.valid && c.version == version && len(c.adj) == nv {
		adj := c.adj
		c.mu.RUnlock()
		return adj, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	adj, err := BuildAdjacency(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.adj = nil
		c.valid = false
		return nil, err
	}
	if c.gen != gen {
		return adj, nil // Invalidated meanwhile, stay stale.
	}
	c.adj = adj
	c.version = version
	c.valid = true
	return adj, nil
}

// Invalidate marks the cache stale. Hosts call it when the connected mesh is replaced.
func (c *AdjacencyCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.gen++
	c.mu.Unlock()
}

// State reports whether the cache currently holds a usable adjacency.
func (c *AdjacencyCache) State() CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.valid {
		return NeighborsValid
	}
	return NeighborsStale
}

// Version returns the topology version of the last successful rebuild.
func (c *AdjacencyCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
