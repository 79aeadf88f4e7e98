package render

import (
	"errors"
	"io"
	"os"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/smoothmesh/internal/d3"
	"github.com/soypat/smoothmesh/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.ReadAll implementation.
func RenderAll(r Renderer) ([]ms3.Triangle, error) {
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, 1<<12)
	buf := make([]ms3.Triangle, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		result = append(result, buf[:nt]...)
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// ReadSTLFile reads the binary STL file at path and welds its triangles
// into a connected mesh, merging vertices closer than weldTol.
// A zero weldTol is inferred from the model's edge lengths. Like
// ReadBinarySTL the mesh is still returned when the error wraps
// ErrNormalMismatch.
func ReadSTLFile(path string, weldTol float64) (*mesh.Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	model, err := ReadBinarySTL(fp)
	if err != nil && !errors.Is(err, ErrNormalMismatch) {
		return nil, err
	}
	m, werr := Weld(model, weldTol)
	if werr != nil {
		return nil, werr
	}
	return m, err
}

// Weld converts STL triangles to a connected mesh. See mesh.Weld.
func Weld(model []ms3.Triangle, tol float64) (*mesh.Mesh, error) {
	soup := make([][3]r3.Vec, len(model))
	for i, t := range model {
		soup[i] = [3]r3.Vec{d3.FromMS3(t[0]), d3.FromMS3(t[1]), d3.FromMS3(t[2])}
	}
	return mesh.Weld(soup, tol)
}
