package render

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/shadow"
)

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func vec4At(b []byte, off int) mgl32.Vec4 {
	return mgl32.Vec4{floatAt(b, off), floatAt(b, off+4), floatAt(b, off+8), floatAt(b, off+12)}
}

func mat4At(b []byte, off int) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = floatAt(b, off+i*4)
	}
	return m
}

func TestMaterialStride(t *testing.T) {
	tests := []struct {
		align uint64
		want  uint64
	}{
		{0, 48},
		{1, 48},
		{16, 48},
		{64, 64},
		{256, 256},
	}
	for _, tt := range tests {
		if got := materialStride(tt.align); got != tt.want {
			t.Errorf("materialStride(%d) = %d, want %d", tt.align, got, tt.want)
		}
	}
}

func TestPackMaterial(t *testing.T) {
	m := &Material{
		DiffuseColor:     mgl32.Vec4{0.1, 0.2, 0.3, 1},
		Roughness:        0.7,
		Metallic:         0.25,
		HasTexture:       true,
		HasMetalRoughMap: true,
	}
	b := packMaterial(m)
	if len(b) != materialSize {
		t.Fatalf("len = %d, want %d", len(b), materialSize)
	}
	if got := vec4At(b, 0); got != m.DiffuseColor {
		t.Errorf("diffuse = %v", got)
	}
	want := []float32{1, 0, 1, 0.7, 0.25, 0, 0, 0}
	for i, w := range want {
		if got := floatAt(b, vec4Size+i*4); got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}
}

func TestCheckMaterialCapacity(t *testing.T) {
	models := []*Model{{ID: "m", Materials: []*Material{{ID: 0}, {ID: 1}, {ID: 2}}}}
	if err := checkMaterialCapacity(models, 3); err != nil {
		t.Fatalf("3 materials fit in 3 slots: %v", err)
	}
	if err := checkMaterialCapacity(models, 2); !errors.Is(err, ErrTooManyMaterials) {
		t.Fatalf("err = %v, want ErrTooManyMaterials", err)
	}
}

func TestPackLightsViewSpace(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	ambient := mgl32.Vec4{0.2, 0.2, 0.2, 1}
	lights := []scene.Light{
		scene.NewPointLight(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1, 0, 0}, 2),
		scene.NewDirectionalLight(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 1, 1}, 0.5),
	}
	b := packLights(ambient, lights, view)
	if len(b) != lightBufferSize {
		t.Fatalf("len = %d, want %d", len(b), lightBufferSize)
	}
	if got := vec4At(b, 0); got != ambient {
		t.Errorf("ambient = %v", got)
	}
	if n := binary.LittleEndian.Uint32(b[vec4Size:]); n != 2 {
		t.Errorf("count = %d", n)
	}

	base := 2 * vec4Size
	point := vec4At(b, base)
	if want := (mgl32.Vec4{1, 2, -2, 1}); !nearlyEqual(point[:], want[:], 1e-5) {
		t.Errorf("point light in view space = %v, want %v", point, want)
	}
	if got := vec4At(b, base+vec4Size); got != lights[0].Color {
		t.Errorf("point color = %v", got)
	}
	dir := vec4At(b, base+lightSize)
	if want := (mgl32.Vec4{0, 1, 0, 0}); !nearlyEqual(dir[:], want[:], 1e-5) {
		t.Errorf("directional light = %v, want %v (translation must not apply)", dir, want)
	}
}

func TestPackLightsClampsToCapacity(t *testing.T) {
	lights := make([]scene.Light, scene.MaxLights+3)
	b := packLights(mgl32.Vec4{}, lights, mgl32.Ident4())
	if n := binary.LittleEndian.Uint32(b[vec4Size:]); n != scene.MaxLights {
		t.Fatalf("count = %d, want %d", n, scene.MaxLights)
	}
}

func TestPackInvMatrices(t *testing.T) {
	proj := scene.PerspectiveZO(mgl32.DegToRad(60), 4.0/3.0, 1, 100)
	view := mgl32.Translate3D(1, 2, 3)
	b := packInvMatrices(proj, view)
	if !mat4Near(mat4At(b, 0).Mul4(proj), mgl32.Ident4(), 1e-4) {
		t.Errorf("first matrix is not the inverse projection")
	}
	if !mat4Near(mat4At(b, mat4Size), mgl32.Translate3D(-1, -2, -3), 1e-5) {
		t.Errorf("second matrix is not the inverse view")
	}
}

func TestPackCascades(t *testing.T) {
	cascades := []shadow.Cascade{
		{ProjView: mgl32.Scale3D(1, 1, 1), SplitDistance: -5},
		{ProjView: mgl32.Scale3D(2, 2, 2), SplitDistance: -20},
		{ProjView: mgl32.Scale3D(3, 3, 3), SplitDistance: -100},
	}
	b := packCascades(cascades)
	if len(b) != cascadesBufferSize {
		t.Fatalf("len = %d", len(b))
	}
	matrices := packCascadeMatrices(cascades)
	for i, c := range cascades {
		off := i * cascadeSize
		if mat4At(b, off) != c.ProjView {
			t.Errorf("cascade %d matrix mismatch", i)
		}
		if got := vec4At(b, off+mat4Size); got != (mgl32.Vec4{c.SplitDistance, 0, 0, 0}) {
			t.Errorf("cascade %d split = %v", i, got)
		}
		if mat4At(matrices, i*mat4Size) != c.ProjView {
			t.Errorf("cascade %d shadow matrix mismatch", i)
		}
	}
}

// nearlyEqual compares component-wise with an absolute tolerance. The mgl32
// helpers square the threshold when a component is zero.
func nearlyEqual(a, b []float32, eps float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if d := a[i] - b[i]; d > eps || d < -eps {
			return false
		}
	}
	return true
}

func mat4Near(a, b mgl32.Mat4, eps float32) bool { return nearlyEqual(a[:], b[:], eps) }
