package mesh

import (
	"math"

	"github.com/soypat/smoothmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// VertexNormals calculates a unit normal for every position as the sum of the
// normals of the faces around it weighted by the face's opening angle at the vertex.
// Polygons are fanned around their first corner. Vertices with no
// non-degenerate face get a zero normal.
func VertexNormals(positions []r3.Vec, faces [][]int) []r3.Vec {
	normals := make([]r3.Vec, len(positions))
	for _, face := range faces {
		for k := 1; k+1 < len(face); k++ {
			tri := [3]int{face[0], face[k], face[k+1]}
			a, b, c := positions[tri[0]], positions[tri[1]], positions[tri[2]]
			n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
			if n == (r3.Vec{}) {
				continue // degenerate triangle.
			}
			n = r3.Unit(n)
			for j, vi := range tri {
				vert := positions[vi]
				s1, s2 := r3.Sub(positions[tri[(j+1)%3]], vert), r3.Sub(positions[tri[(j+2)%3]], vert)
				alpha := math.Acos(clampUnit(r3.Cos(s1, s2)))
				normals[vi] = r3.Add(normals[vi], r3.Scale(alpha, n))
			}
		}
	}
	for i := range normals {
		normals[i] = d3.SafeUnit(normals[i])
	}
	return normals
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
