package render

import (
	"errors"
	"image"
	"image/png"
	"io"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// PreviewConfig sets up the camera and colors of a preview image.
// The model is fit in a bi-unit cube centered at the origin before drawing.
type PreviewConfig struct {
	Width, Height int
	// Supersampling factor. The image is drawn Scale times larger and downsampled.
	Scale      int
	Color      string // object color as hex
	Background string // background color as hex
	Eye        r3.Vec // camera position
	Center     r3.Vec // view center position
	Up         r3.Vec
	Light      r3.Vec // light direction
	Fovy       float64
	Near, Far  float64
}

// DefaultPreview returns a three-quarter view of a Z-up model.
func DefaultPreview() PreviewConfig {
	return PreviewConfig{
		Width:      960,
		Height:     540,
		Scale:      2,
		Color:      "#468966",
		Background: "#FFF8E3",
		Eye:        r3.Vec{X: 3, Y: -4, Z: 2.5},
		Up:         r3.Vec{Z: 1},
		Light:      r3.Vec{X: -0.75, Y: -1, Z: 0.25},
		Fovy:       30,
		Near:       1,
		Far:        20,
	}
}

// Preview draws the model with a phong shader.
func Preview(model []ms3.Triangle, cfg PreviewConfig) (image.Image, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("preview dimensions must be positive")
	}
	scale := max(cfg.Scale, 1)
	triangles := make([]*fauxgl.Triangle, len(model))
	for i, t := range model {
		triangles[i] = fauxgl.NewTriangleForPoints(fauxVec(t[0]), fauxVec(t[1]), fauxVec(t[2]))
	}
	mesh := fauxgl.NewTriangleMesh(triangles)
	mesh.BiUnitCube()

	var (
		eye    = fauxgl.V(cfg.Eye.X, cfg.Eye.Y, cfg.Eye.Z)
		center = fauxgl.V(cfg.Center.X, cfg.Center.Y, cfg.Center.Z)
		up     = fauxgl.V(cfg.Up.X, cfg.Up.Y, cfg.Up.Z)
		light  = fauxgl.V(cfg.Light.X, cfg.Light.Y, cfg.Light.Z).Normalize()
	)
	context := fauxgl.NewContext(cfg.Width*scale, cfg.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(cfg.Background))
	aspect := float64(cfg.Width) / float64(cfg.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(cfg.Fovy, aspect, cfg.Near, cfg.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(cfg.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	img := context.Image()
	img = resize.Resize(uint(cfg.Width), uint(cfg.Height), img, resize.Bilinear)
	return img, nil
}

// WritePNG draws a preview of the model and encodes it as PNG to w.
func WritePNG(w io.Writer, model []ms3.Triangle, cfg PreviewConfig) error {
	img, err := Preview(model, cfg)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func fauxVec(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
