package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weld assembles an indexed triangle mesh from a triangle soup such as the
// contents of an STL file. Vertices closer than tol are merged into one.
// tol should be of the order of 1/1000th of the smallest triangle side.
// If tol is 0 it is inferred from the shortest edge.
// Triangles that collapse after welding are dropped.
func Weld(triangles [][3]r3.Vec, tol float64) (*Mesh, error) {
	if len(triangles) == 0 {
		return nil, errors.New("mesh: empty triangle slice")
	}
	if tol < 0 || math.IsNaN(tol) {
		return nil, fmt.Errorf("mesh: invalid weld tolerance %g", tol)
	}
	minDist2 := math.MaxFloat64
	maxDist2 := -math.MaxFloat64
	for i := range triangles {
		for j, vert := range triangles[i] {
			side2 := r3.Norm2(r3.Sub(triangles[i][(j+1)%3], vert))
			minDist2 = math.Min(minDist2, side2)
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return nil, fmt.Errorf("mesh: weld tolerance is too large to generate appropiate mesh, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	tol2 := tol * tol

	var (
		tree     kdtree.Tree
		vertices []r3.Vec
		faces    = make([][3]int, 0, len(triangles))
		query    weldPoint
	)
	for _, tri := range triangles {
		var face [3]int
		for j, vert := range tri {
			query.v = vert
			if tree.Root != nil {
				nearest, dist2 := tree.Nearest(&query)
				if dist2 <= tol2 {
					face[j] = nearest.(*weldPoint).idx
					continue
				}
			}
			face[j] = len(vertices)
			tree.Insert(&weldPoint{v: vert, idx: len(vertices)}, false)
			vertices = append(vertices, vert)
		}
		if face[0] == face[1] || face[1] == face[2] || face[2] == face[0] {
			continue
		}
		faces = append(faces, face)
	}
	if len(faces) == 0 {
		return nil, errors.New("mesh: all triangles collapsed during welding")
	}
	vertices = dropUnreferenced(vertices, faces)
	return NewMesh(vertices, faces)
}

// dropUnreferenced removes vertices no face uses, which collapsed triangles
// leave behind, and renumbers faces in place.
func dropUnreferenced(vertices []r3.Vec, faces [][3]int) []r3.Vec {
	used := make([]bool, len(vertices))
	for _, f := range faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	remap := make([]int, len(vertices))
	n := 0
	for i, u := range used {
		if u {
			vertices[n] = vertices[i]
			remap[i] = n
			n++
		}
	}
	for i := range faces {
		for j := range faces[i] {
			faces[i][j] = remap[faces[i][j]]
		}
	}
	return vertices[:n]
}

// weldPoint is a vertex stored in the welding kd-tree.
type weldPoint struct {
	v   r3.Vec
	idx int
}

func (p *weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*weldPoint)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	}
	panic("unreachable")
}

func (p *weldPoint) Dims() int { return 3 }

func (p *weldPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(*weldPoint)
	return r3.Norm2(r3.Sub(p.v, q.v))
}
