package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tetrahedron returns a regular tetrahedron with unit circumradius centered at the origin.
// Every vertex is connected to the other three.
func Tetrahedron() *Mesh {
	const s = 1 / 1.7320508075688772 // 1/sqrt(3)
	verts := []r3.Vec{
		{X: s, Y: s, Z: s},
		{X: s, Y: -s, Z: -s},
		{X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s},
	}
	faces := [][3]int{
		{0, 1, 2},
		{0, 3, 1},
		{0, 2, 3},
		{1, 3, 2},
	}
	m, err := NewMesh(verts, faces)
	if err != nil {
		panic(err)
	}
	return m
}

// QuadGrid returns the positions and quad faces of a flat nx by ny vertex grid
// on the XY plane with the given spacing. Interior vertices have exactly
// four neighbors, at the same distance from the vertex.
func QuadGrid(nx, ny int, spacing float64) (positions []r3.Vec, faces [][]int) {
	if nx < 2 || ny < 2 {
		panic("QuadGrid needs at least 2x2 vertices")
	}
	positions = make([]r3.Vec, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			positions = append(positions, r3.Vec{X: float64(i) * spacing, Y: float64(j) * spacing})
		}
	}
	faces = make([][]int, 0, (nx-1)*(ny-1))
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			v := j*nx + i
			faces = append(faces, []int{v, v + 1, v + nx + 1, v + nx})
		}
	}
	return positions, faces
}

// Icosphere returns a unit sphere made by subdividing an icosahedron
// the given number of times. Triangles wind counter-clockwise seen from outside.
func Icosphere(subdivisions int) *Mesh {
	t := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for i := 0; i < subdivisions; i++ {
		verts, faces = subdivide(verts, faces)
	}
	for i := range verts {
		verts[i] = r3.Unit(verts[i])
	}
	m, err := NewMesh(verts, faces)
	if err != nil {
		panic(err)
	}
	return m
}

func subdivide(verts []r3.Vec, faces [][3]int) ([]r3.Vec, [][3]int) {
	midpoints := make(map[[2]int]int)
	midpoint := func(a, b int) int {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if mid, ok := midpoints[key]; ok {
			return mid
		}
		verts = append(verts, r3.Scale(0.5, r3.Add(verts[a], verts[b])))
		midpoints[key] = len(verts) - 1
		return len(verts) - 1
	}
	newFaces := make([][3]int, 0, 4*len(faces))
	for _, f := range faces {
		m1 := midpoint(f[0], f[1])
		m2 := midpoint(f[1], f[2])
		m3 := midpoint(f[2], f[0])
		newFaces = append(newFaces,
			[3]int{f[0], m1, m3},
			[3]int{f[1], m2, m1},
			[3]int{f[2], m3, m2},
			[3]int{m1, m2, m3},
		)
	}
	return verts, newFaces
}
