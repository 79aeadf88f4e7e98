// Package render reads and writes triangle meshes as binary STL and
// draws PNG previews of them.
package render

import (
	"io"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/smoothmesh/internal/d3"
	"github.com/soypat/smoothmesh/mesh"
)

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(t []ms3.Triangle) (int, error)
}

// MeshRenderer streams the faces of a mesh as triangles.
type MeshRenderer struct {
	m    *mesh.Mesh
	next int
}

// NewMeshRenderer returns a Renderer over the faces of m.
func NewMeshRenderer(m *mesh.Mesh) *MeshRenderer {
	return &MeshRenderer{m: m}
}

func (r *MeshRenderer) ReadTriangles(dst []ms3.Triangle) (int, error) {
	if r.next >= len(r.m.Faces) {
		return 0, io.EOF
	}
	n := min(len(dst), len(r.m.Faces)-r.next)
	for i := range dst[:n] {
		f := r.m.Faces[r.next+i]
		dst[i] = ms3.Triangle{
			d3.ToMS3(r.m.Vertices[f[0]]),
			d3.ToMS3(r.m.Vertices[f[1]]),
			d3.ToMS3(r.m.Vertices[f[2]]),
		}
	}
	r.next += n
	return n, nil
}

// Reset rewinds the renderer to the first face.
func (r *MeshRenderer) Reset() { r.next = 0 }
