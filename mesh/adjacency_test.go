package mesh

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildAdjacencyTetrahedron checks every vertex of a tetrahedron sees the other three.
func TestBuildAdjacencyTetrahedron(t *testing.T) {
	adj, err := BuildAdjacency(Tetrahedron())
	require.NoError(t, err)
	require.Equal(t, 4, adj.Len())
	assert.Equal(t, []int{1, 2, 3}, adj.Neighbors(0))
	assert.Equal(t, []int{0, 2, 3}, adj.Neighbors(1))
	assert.Equal(t, []int{0, 1, 3}, adj.Neighbors(2))
	assert.Equal(t, []int{0, 1, 2}, adj.Neighbors(3))
}

// TestBuildAdjacencyQuadGrid checks corner, edge and interior valences of a quad grid.
func TestBuildAdjacencyQuadGrid(t *testing.T) {
	pos, faces := QuadGrid(4, 3, 1)
	topo, err := NewPolygonTopology(len(pos), faces)
	require.NoError(t, err)
	adj, err := BuildAdjacency(topo)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, adj.Neighbors(0), "corner")
	assert.Equal(t, []int{0, 2, 5}, adj.Neighbors(1), "edge")
	assert.Equal(t, []int{1, 4, 6, 9}, adj.Neighbors(5), "interior")
	// Diagonals of a quad are not edges.
	assert.NotContains(t, adj.Neighbors(5), 0)
	assert.NotContains(t, adj.Neighbors(5), 10)
}

// TestBuildAdjacencyCollapsesDuplicates verifies duplicate and self entries are dropped.
func TestBuildAdjacencyCollapsesDuplicates(t *testing.T) {
	nl := NeighborList{
		{1, 1, 0, 2, 1},
		{0},
		{0, 0},
	}
	adj, err := BuildAdjacency(nl)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, adj.Neighbors(0))
	assert.Equal(t, []int{0}, adj.Neighbors(1))
	assert.Equal(t, []int{0}, adj.Neighbors(2))
}

// TestBuildAdjacencyAsymmetric verifies connections are taken as reported.
func TestBuildAdjacencyAsymmetric(t *testing.T) {
	nl := NeighborList{
		{1, 2},
		{2},
		{1},
	}
	adj, err := BuildAdjacency(nl)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, adj.Neighbors(0))
	assert.Equal(t, []int{2}, adj.Neighbors(1), "0 is not derived from symmetry")
}

func TestBuildAdjacencyDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		topo   Topology
		vertex int
	}{
		{name: "empty list", topo: NeighborList{{1}, {0}, {}}, vertex: 2},
		{name: "only self", topo: NeighborList{{0}, {0}}, vertex: 0},
		{name: "unreferenced vertex", topo: mustPolygons(t, 5, [][]int{{0, 1, 2}, {0, 2, 3}}), vertex: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj, err := BuildAdjacency(tt.topo)
			require.Error(t, err)
			assert.Nil(t, adj)
			var de *DegenerateTopologyError
			require.True(t, errors.As(err, &de), "error must be DegenerateTopologyError")
			assert.Equal(t, tt.vertex, de.Vertex)
			assert.True(t, errors.Is(err, ErrDegenerateTopology))
		})
	}
}

func TestNewPolygonTopologyErrors(t *testing.T) {
	_, err := NewPolygonTopology(3, [][]int{{0, 1}})
	assert.Error(t, err, "face with two corners")
	_, err = NewPolygonTopology(3, [][]int{{0, 1, 3}})
	assert.Error(t, err, "vertex out of range")
	_, err = NewPolygonTopology(-1, nil)
	assert.Error(t, err, "negative count")
}

func TestAdjacencyCacheLifecycle(t *testing.T) {
	var c AdjacencyCache
	require.Equal(t, NeighborsStale, c.State())

	tet := Tetrahedron()
	adj1, err := c.Ensure(tet, 1)
	require.NoError(t, err)
	require.Equal(t, NeighborsValid, c.State())
	require.Equal(t, uint64(1), c.Version())

	// Same version: cached sets are returned as is.
	adj2, err := c.Ensure(tet, 1)
	require.NoError(t, err)
	assert.Same(t, &adj1[0][0], &adj2[0][0], "no rebuild expected")

	// Version change rebuilds.
	adj3, err := c.Ensure(tet, 2)
	require.NoError(t, err)
	assert.NotSame(t, &adj1[0][0], &adj3[0][0], "rebuild expected on version change")
	assert.Equal(t, adj1, adj3)

	// Explicit invalidation rebuilds.
	c.Invalidate()
	require.Equal(t, NeighborsStale, c.State())
	adj4, err := c.Ensure(tet, 2)
	require.NoError(t, err)
	assert.NotSame(t, &adj3[0][0], &adj4[0][0], "rebuild expected after Invalidate")

	// Vertex count change with same version rebuilds (missed signal safety net).
	ico := Icosphere(0)
	adj5, err := c.Ensure(ico, 2)
	require.NoError(t, err)
	assert.Equal(t, 12, adj5.Len())
}

func TestAdjacencyCacheInvalidateDuringRebuild(t *testing.T) {
	var c AdjacencyCache
	topo := &blockingTopology{
		NeighborList: NeighborList{{1}, {0}},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	done := make(chan error)
	go func() {
		_, err := c.Ensure(topo, 1)
		done <- err
	}()
	<-topo.started
	c.Invalidate()
	close(topo.release)
	require.NoError(t, <-done)
	assert.Equal(t, NeighborsStale, c.State(), "invalidation during rebuild must not be lost")

	adj, err := c.Ensure(topo, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, adj.Len())
	assert.Equal(t, NeighborsValid, c.State())
}

// blockingTopology holds the first visit of vertex 0 until release is closed.
type blockingTopology struct {
	NeighborList
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTopology) AppendConnected(dst []int, i int) []int {
	if i == 0 {
		b.once.Do(func() {
			close(b.started)
			<-b.release
		})
	}
	return b.NeighborList.AppendConnected(dst, i)
}

func TestAdjacencyCacheFailedRebuild(t *testing.T) {
	var c AdjacencyCache
	_, err := c.Ensure(Tetrahedron(), 1)
	require.NoError(t, err)

	_, err = c.Ensure(NeighborList{{1}, {}}, 2)
	require.ErrorIs(t, err, ErrDegenerateTopology)
	assert.Equal(t, NeighborsStale, c.State())
	assert.Equal(t, uint64(1), c.Version(), "failed rebuild must not publish a version")
}

func TestCacheStateString(t *testing.T) {
	assert.Equal(t, "stale", NeighborsStale.String())
	assert.Equal(t, "valid", NeighborsValid.String())
	assert.Equal(t, "CacheState(7)", CacheState(7).String())
}

func mustPolygons(t *testing.T, n int, faces [][]int) *PolygonTopology {
	t.Helper()
	pt, err := NewPolygonTopology(n, faces)
	require.NoError(t, err)
	return pt
}

func TestBuildAdjacencyOutOfRange(t *testing.T) {
	_, err := BuildAdjacency(NeighborList{{1}, {2}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDegenerateTopology))
}
