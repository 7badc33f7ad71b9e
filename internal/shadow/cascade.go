// Package shadow fits cascaded shadow map projections to the camera frustum.
package shadow

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// CascadeCount is the number of layers of the shadow depth array.
	CascadeCount = 3

	// DefaultSplitLambda blends logarithmic (1) and uniform (0) splits.
	DefaultSplitLambda = 0.95
)

var ErrInvalidRange = errors.New("invalid cascade range")

// Cascade is one shadow map layer.
type Cascade struct {
	ProjView mgl32.Mat4
	// SplitDistance is the negative view-space depth where this cascade ends.
	SplitDistance float32
}

// Slice is the bounding sphere of one cascade's part of the view frustum.
type Slice struct {
	Center mgl32.Vec3
	Radius float32
}

type Params struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Near       float32
	Far        float32
	// LightPosition is where the directional light comes from; the light
	// travels along -LightPosition.
	LightPosition mgl32.Vec3
	Count         int
	Lambda        float32
}

// ComputeCascades returns one cascade per requested layer. The result only
// depends on p.
func ComputeCascades(p Params) ([]Cascade, error) {
	cascades, _, err := compute(p)
	return cascades, err
}

// ComputeSlices returns the frustum slice bounds ComputeCascades fits to.
func ComputeSlices(p Params) ([]Slice, error) {
	_, slices, err := compute(p)
	return slices, err
}

// SplitFractions returns where each cascade ends as a fraction of far-near.
func SplitFractions(near, far float32, count int, lambda float32) []float32 {
	clipRange := far - near
	ratio := float64(far / near)
	splits := make([]float32, count)
	for i := range splits {
		p := float64(i+1) / float64(count)
		logSplit := near * float32(math.Pow(ratio, p))
		uniformSplit := near + clipRange*float32(p)
		d := lambda*(logSplit-uniformSplit) + uniformSplit
		splits[i] = (d - near) / clipRange
	}
	return splits
}

func compute(p Params) ([]Cascade, []Slice, error) {
	if p.Count <= 0 || p.Near <= 0 || p.Far <= p.Near {
		return nil, nil, fmt.Errorf("count=%d near=%v far=%v: %w", p.Count, p.Near, p.Far, ErrInvalidRange)
	}
	clipRange := p.Far - p.Near
	splits := SplitFractions(p.Near, p.Far, p.Count, p.Lambda)
	worldCorners := frustumCorners(p.Projection.Mul4(p.View).Inv())

	lightDir := p.LightPosition.Mul(-1)
	if lightDir.Len() > 0 {
		lightDir = lightDir.Normalize()
	}
	up := mgl32.Vec3{0, 1, 0}
	if math.Abs(float64(lightDir.Dot(up))) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}

	cascades := make([]Cascade, p.Count)
	slices := make([]Slice, p.Count)
	lastSplit := float32(0)
	for i, split := range splits {
		var corners [8]mgl32.Vec3
		for j := 0; j < 4; j++ {
			dist := worldCorners[j+4].Sub(worldCorners[j])
			corners[j+4] = worldCorners[j].Add(dist.Mul(split))
			corners[j] = worldCorners[j].Add(dist.Mul(lastSplit))
		}

		var center mgl32.Vec3
		for _, c := range corners {
			center = center.Add(c)
		}
		center = center.Mul(1.0 / 8.0)

		radius := float32(0)
		for _, c := range corners {
			radius = max(radius, c.Sub(center).Len())
		}
		radius = float32(math.Ceil(float64(radius)*16) / 16)

		eye := center.Sub(lightDir.Mul(radius))
		lightView := mgl32.LookAtV(eye, center, up)
		lightOrtho := OrthoZO(-radius, radius, -radius, radius, 0, 2*radius)

		cascades[i] = Cascade{
			ProjView:      lightOrtho.Mul4(lightView),
			SplitDistance: -(p.Near + split*clipRange),
		}
		slices[i] = Slice{Center: center, Radius: radius}
		lastSplit = split
	}
	return cascades, slices, nil
}

// frustumCorners unprojects the NDC cube corners: near plane first, then far.
func frustumCorners(invProjView mgl32.Mat4) [8]mgl32.Vec3 {
	ndc := [8]mgl32.Vec3{
		{-1, 1, 0}, {1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
		{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
	}
	var out [8]mgl32.Vec3
	for i, c := range ndc {
		w := invProjView.Mul4x1(c.Vec4(1))
		out[i] = w.Vec3().Mul(1 / w.W())
	}
	return out
}

// OrthoZO is an orthographic projection with clip-space depth in [0, 1].
func OrthoZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	var m mgl32.Mat4
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = 1 / (near - far)
	m[12] = (right + left) / (left - right)
	m[13] = (top + bottom) / (bottom - top)
	m[14] = near / (near - far)
	m[15] = 1
	return m
}
