package render_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/smoothmesh/internal/d3"
	"github.com/soypat/smoothmesh/mesh"
	"github.com/soypat/smoothmesh/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSTLWriteReadWeld(t *testing.T) {
	ico := mesh.Icosphere(2)
	model, err := render.RenderAll(render.NewMeshRenderer(ico))
	require.NoError(t, err)
	require.Len(t, model, len(ico.Faces))

	var b bytes.Buffer
	n, err := render.WriteBinarySTL(&b, model)
	require.NoError(t, err)
	assert.Equal(t, 84+50*len(model), n)
	assert.Equal(t, uint32(len(model)), binary.LittleEndian.Uint32(b.Bytes()[80:]))

	got, err := render.ReadBinarySTL(&b)
	require.NoError(t, err)
	assert.Equal(t, model, got)

	welded, err := render.Weld(got, 0)
	require.NoError(t, err)
	assert.Len(t, welded.Vertices, len(ico.Vertices))
	assert.Len(t, welded.Faces, len(ico.Faces))
	assert.InDelta(t, ico.Volume(), welded.Volume(), 1e-5)
}

func TestCreateSTLMatchesWrite(t *testing.T) {
	// More faces than fit in a single stream buffer.
	ico := mesh.Icosphere(4)
	path := filepath.Join(t.TempDir(), "ico.stl")
	require.NoError(t, render.CreateSTL(path, render.NewMeshRenderer(ico)))
	file, err := os.ReadFile(path)
	require.NoError(t, err)

	model, err := render.RenderAll(render.NewMeshRenderer(ico))
	require.NoError(t, err)
	var b bytes.Buffer
	_, err = render.WriteBinarySTL(&b, model)
	require.NoError(t, err)
	assert.Equal(t, b.Bytes(), file, "CreateSTL and WriteBinarySTL output mismatch")

	m, err := render.ReadSTLFile(path, 0)
	require.NoError(t, err)
	assert.Len(t, m.Vertices, len(ico.Vertices))
}

func TestMeshRendererReset(t *testing.T) {
	tet := mesh.Tetrahedron()
	r := render.NewMeshRenderer(tet)
	buf := make([]ms3.Triangle, 3)
	n, err := r.ReadTriangles(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = r.ReadTriangles(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = r.ReadTriangles(buf)
	assert.Equal(t, io.EOF, err)

	r.Reset()
	all, err := render.RenderAll(r)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, d3.ToMS3(tet.Vertices[tet.Faces[3][0]]), all[3][0])
}

func TestReadBinarySTLNormalMismatch(t *testing.T) {
	model := []ms3.Triangle{{{X: 0}, {X: 1}, {Y: 1}}}
	var b bytes.Buffer
	_, err := render.WriteBinarySTL(&b, model)
	require.NoError(t, err)
	data := b.Bytes()
	// Overwrite the +Z facet normal with +X.
	binary.LittleEndian.PutUint32(data[84:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(data[92:], math.Float32bits(0))

	got, err := render.ReadBinarySTL(bytes.NewReader(data))
	assert.True(t, errors.Is(err, render.ErrNormalMismatch), "got %v", err)
	assert.Equal(t, model, got, "triangles returned despite mismatch")

	// A zero normal is accepted.
	binary.LittleEndian.PutUint32(data[84:], 0)
	_, err = render.ReadBinarySTL(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestReadBinarySTLErrors(t *testing.T) {
	model := []ms3.Triangle{{{X: 0}, {X: 1}, {Y: 1}}, {{X: 1}, {X: 1, Y: 1}, {Y: 1}}}
	var b bytes.Buffer
	_, err := render.WriteBinarySTL(&b, model)
	require.NoError(t, err)
	data := b.Bytes()

	nan := append([]byte{}, data...)
	binary.LittleEndian.PutUint32(nan[84+12:], math.Float32bits(float32(math.NaN())))
	zero := append([]byte{}, data...)
	binary.LittleEndian.PutUint32(zero[80:], 0)

	tests := map[string][]byte{
		"short header": data[:40],
		"truncated":    data[:len(data)-10],
		"nan vertex":   nan,
		"no triangles": zero,
	}
	for name, input := range tests {
		_, err := render.ReadBinarySTL(bytes.NewReader(input))
		assert.Error(t, err, name)
	}
	_, err = render.WriteBinarySTL(&b, nil)
	assert.Error(t, err)

	// Only the first of two triangles is complete.
	_, err = render.ReadBinarySTL(bytes.NewReader(data[:len(data)-10]))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2 STL triangles read")
	_, err = render.ReadBinarySTL(bytes.NewReader(nan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0/2 STL triangles read")
}
