// Package mesh holds the connectivity side of a polygon mesh: topologies,
// per-vertex adjacency and its version-stamped cache, vertex normals and
// helpers to build indexed triangle meshes from triangle soups.
package mesh

import "fmt"

// Topology describes V vertices and the vertices directly connected to each one.
// Implementations need not be symmetric; BuildAdjacency takes each vertex's
// connections as reported.
type Topology interface {
	// NumVertices returns V, the number of vertices in the topology.
	NumVertices() int
	// AppendConnected appends the vertices directly connected to vertex i to dst
	// and returns the extended slice. Duplicates are allowed.
	AppendConnected(dst []int, i int) []int
}

// NeighborList is a Topology given as explicit per-vertex connection lists,
// the way a host application usually hands them over.
type NeighborList [][]int

func (nl NeighborList) NumVertices() int { return len(nl) }

func (nl NeighborList) AppendConnected(dst []int, i int) []int {
	return append(dst, nl[i]...)
}

// PolygonTopology is the topology of a polygon mesh given by its faces.
// Consecutive corners of a face, including last and first, are connected by an edge.
type PolygonTopology struct {
	faces [][]int
	// incident contains the faces each vertex belongs to along with the corner index.
	incident [][]corner
}

type corner struct {
	face int
	hint int
}

// NewPolygonTopology builds the topology of numVertices vertices connected by faces.
// Faces must have at least 3 corners and index vertices in [0, numVertices).
// Vertices referenced by no face are allowed here and surface as a
// DegenerateTopologyError once adjacency is built.
func NewPolygonTopology(numVertices int, faces [][]int) (*PolygonTopology, error) {
	if numVertices < 0 {
		return nil, fmt.Errorf("mesh: negative vertex count %d", numVertices)
	}
	pt := &PolygonTopology{
		faces:    faces,
		incident: make([][]corner, numVertices),
	}
	for iface, face := range faces {
		if len(face) < 3 {
			return nil, fmt.Errorf("mesh: face %d has %d corners, need at least 3", iface, len(face))
		}
		for j, v := range face {
			if v < 0 || v >= numVertices {
				return nil, fmt.Errorf("mesh: face %d references vertex %d out of range [0,%d)", iface, v, numVertices)
			}
			pt.incident[v] = append(pt.incident[v], corner{face: iface, hint: j})
		}
	}
	return pt, nil
}

func (pt *PolygonTopology) NumVertices() int { return len(pt.incident) }

func (pt *PolygonTopology) AppendConnected(dst []int, i int) []int {
	for _, c := range pt.incident[i] {
		face := pt.faces[c.face]
		n := len(face)
		dst = append(dst, face[(c.hint+1)%n], face[(c.hint+n-1)%n])
	}
	return dst
}

// Faces returns the faces the topology was built from. Do not modify.
func (pt *PolygonTopology) Faces() [][]int { return pt.faces }
