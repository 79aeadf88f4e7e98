package mesh

import (
	"errors"

	"github.com/soypat/smoothmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. It implements Topology.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
	topo     *PolygonTopology
}

// NewMesh creates a triangle mesh from vertex positions and triangle indices.
func NewMesh(vertices []r3.Vec, faces [][3]int) (*Mesh, error) {
	if len(faces) == 0 {
		return nil, errors.New("mesh: no faces")
	}
	topo, err := NewPolygonTopology(len(vertices), polygons(faces))
	if err != nil {
		return nil, err
	}
	return &Mesh{Vertices: vertices, Faces: faces, topo: topo}, nil
}

func polygons(faces [][3]int) [][]int {
	polys := make([][]int, len(faces))
	for i := range faces {
		polys[i] = faces[i][:]
	}
	return polys
}

func (m *Mesh) NumVertices() int { return len(m.Vertices) }

func (m *Mesh) AppendConnected(dst []int, i int) []int { return m.topo.AppendConnected(dst, i) }

// Topology returns the connectivity of the mesh without positions.
func (m *Mesh) Topology() *PolygonTopology { return m.topo }

// WithVertices returns a mesh sharing m's connectivity with different vertex positions.
// It panics if the number of vertices differs.
func (m *Mesh) WithVertices(vertices []r3.Vec) *Mesh {
	if len(vertices) != len(m.Vertices) {
		panic("mesh: vertex count mismatch")
	}
	return &Mesh{Vertices: vertices, Faces: m.Faces, topo: m.topo}
}

// Normals returns the angle weighted unit vertex normals of the mesh.
func (m *Mesh) Normals() []r3.Vec {
	return VertexNormals(m.Vertices, m.topo.faces)
}

// Bounds returns the bounding box of the mesh vertices.
func (m *Mesh) Bounds() d3.Box {
	return d3.Set(m.Vertices).Bounds()
}

// Triangles returns the triangle soup of the mesh.
func (m *Mesh) Triangles() [][3]r3.Vec {
	tris := make([][3]r3.Vec, len(m.Faces))
	for i, f := range m.Faces {
		tris[i] = [3]r3.Vec{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
	}
	return tris
}

// Volume returns the signed volume enclosed by the mesh. It is positive for
// closed meshes with outward facing counter-clockwise triangles.
func (m *Mesh) Volume() float64 {
	var vol float64
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		vol += r3.Dot(a, r3.Cross(b, c))
	}
	return vol / 6
}
