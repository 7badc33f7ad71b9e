package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection is a right-handed perspective with depth mapped to [0, 1].
type Projection struct {
	fov    float32
	near   float32
	far    float32
	matrix mgl32.Mat4
}

func NewProjection(fov, near, far float32, width, height int) *Projection {
	p := &Projection{fov: fov, near: near, far: far, matrix: mgl32.Ident4()}
	p.Resize(width, height)
	return p
}

func (p *Projection) Matrix() mgl32.Mat4 { return p.matrix }
func (p *Projection) Near() float32      { return p.near }
func (p *Projection) Far() float32       { return p.far }
func (p *Projection) FOV() float32       { return p.fov }

// Resize keeps the previous matrix for a minimized window.
func (p *Projection) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.matrix = PerspectiveZO(p.fov, float32(width)/float32(height), p.near, p.far)
}

// PerspectiveZO is mgl32.Perspective with clip-space depth in [0, 1].
func PerspectiveZO(fovy, aspect, near, far float32) mgl32.Mat4 {
	h := float32(math.Tan(float64(fovy) / 2))
	var m mgl32.Mat4
	m[0] = 1 / (h * aspect)
	m[5] = 1 / h
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = far * near / (near - far)
	return m
}
