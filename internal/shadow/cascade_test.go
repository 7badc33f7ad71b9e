package shadow

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hellhand/kube/internal/scene"
)

func within(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func testParams(count int, lambda float32) Params {
	near, far := float32(1), float32(100)
	cam := scene.NewCamera()
	cam.SetPosition(mgl32.Vec3{2, 3, 10})
	cam.SetRotation(mgl32.DegToRad(15), mgl32.DegToRad(-30))
	return Params{
		View:          cam.View(),
		Projection:    scene.PerspectiveZO(mgl32.DegToRad(60), 16.0/9.0, near, far),
		Near:          near,
		Far:           far,
		LightPosition: mgl32.Vec3{-1, 2, 0.5},
		Count:         count,
		Lambda:        lambda,
	}
}

func TestComputeCascadesDeterministic(t *testing.T) {
	p := testParams(CascadeCount, DefaultSplitLambda)
	first, err := ComputeCascades(p)
	if err != nil {
		t.Fatalf("ComputeCascades: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := ComputeCascades(p)
		if err != nil {
			t.Fatalf("ComputeCascades: %v", err)
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d cascade %d differs: %+v vs %+v", run, i, again[i], first[i])
			}
		}
	}
}

func TestSplitDistancesMonotonic(t *testing.T) {
	for _, lambda := range []float32{0, 0.5, DefaultSplitLambda, 1} {
		for _, count := range []int{1, 2, 3, 4, 8} {
			cascades, err := ComputeCascades(testParams(count, lambda))
			if err != nil {
				t.Fatalf("lambda=%v count=%d: %v", lambda, count, err)
			}
			if len(cascades) != count {
				t.Fatalf("lambda=%v: got %d cascades, want %d", lambda, len(cascades), count)
			}
			prev := float32(0)
			for i, c := range cascades {
				if c.SplitDistance >= prev {
					t.Errorf("lambda=%v count=%d cascade %d: split %v not beyond %v", lambda, count, i, c.SplitDistance, prev)
				}
				prev = c.SplitDistance
			}
			if last := cascades[count-1].SplitDistance; !within(last, -100, 1e-3) {
				t.Errorf("lambda=%v count=%d: last split %v, want -far", lambda, count, last)
			}
		}
	}
}

func TestThreeCascadesUniformSplit(t *testing.T) {
	cascades, err := ComputeCascades(testParams(3, 0))
	if err != nil {
		t.Fatalf("ComputeCascades: %v", err)
	}
	want := []float32{-34, -67, -100}
	if len(cascades) != len(want) {
		t.Fatalf("got %d cascades", len(cascades))
	}
	for i, c := range cascades {
		if c.SplitDistance >= 0 {
			t.Errorf("cascade %d split %v is not negative", i, c.SplitDistance)
		}
		if !within(c.SplitDistance, want[i], 1e-3) {
			t.Errorf("cascade %d split %v, want %v", i, c.SplitDistance, want[i])
		}
	}
}

func TestSliceRadiusGrowsWithDepth(t *testing.T) {
	for _, lambda := range []float32{0, DefaultSplitLambda} {
		slices, err := ComputeSlices(testParams(4, lambda))
		if err != nil {
			t.Fatalf("ComputeSlices: %v", err)
		}
		prev := float32(0)
		for i, s := range slices {
			if s.Radius < 0 {
				t.Fatalf("slice %d radius %v is negative", i, s.Radius)
			}
			if s.Radius < prev {
				t.Errorf("lambda=%v slice %d radius %v shrank from %v", lambda, i, s.Radius, prev)
			}
			if s.Radius*16 != float32(int(s.Radius*16)) {
				t.Errorf("slice %d radius %v not snapped to 1/16", i, s.Radius)
			}
			prev = s.Radius
		}
	}
}

func TestCascadeContainsSliceCenter(t *testing.T) {
	p := testParams(CascadeCount, DefaultSplitLambda)
	cascades, err := ComputeCascades(p)
	if err != nil {
		t.Fatal(err)
	}
	slices, err := ComputeSlices(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range cascades {
		clip := cascades[i].ProjView.Mul4x1(slices[i].Center.Vec4(1))
		ndc := clip.Vec3().Mul(1 / clip.W())
		if !within(ndc.X(), 0, 1e-3) || !within(ndc.Y(), 0, 1e-3) {
			t.Errorf("cascade %d: centre projects to %v, want xy=0", i, ndc)
		}
		if !within(ndc.Z(), 0.5, 1e-3) {
			t.Errorf("cascade %d: centre depth %v, want 0.5", i, ndc.Z())
		}
	}
}

func TestLightStraightDown(t *testing.T) {
	p := testParams(CascadeCount, DefaultSplitLambda)
	p.LightPosition = mgl32.Vec3{0, 1, 0}
	cascades, err := ComputeCascades(p)
	if err != nil {
		t.Fatalf("ComputeCascades: %v", err)
	}
	for i, c := range cascades {
		for _, v := range c.ProjView {
			if math.IsNaN(float64(v)) {
				t.Fatalf("cascade %d has NaN in %v", i, c.ProjView)
			}
		}
	}
}

func TestComputeCascadesRejectsBadRange(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Params)
	}{
		{"no cascades", func(p *Params) { p.Count = 0 }},
		{"zero near", func(p *Params) { p.Near = 0 }},
		{"far before near", func(p *Params) { p.Far = 0.5 }},
	}
	for _, tt := range tests {
		p := testParams(3, DefaultSplitLambda)
		tt.edit(&p)
		if _, err := ComputeCascades(p); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("%s: err = %v, want ErrInvalidRange", tt.name, err)
		}
	}
}

func TestOrthoZOMapsDepthToUnitRange(t *testing.T) {
	m := OrthoZO(-2, 2, -2, 2, 0, 4)
	near := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 0, -4, 1})
	if !within(near.Z(), 0, 1e-6) || !within(far.Z(), 1, 1e-6) {
		t.Fatalf("depth near=%v far=%v, want 0 and 1", near.Z(), far.Z())
	}
	corner := m.Mul4x1(mgl32.Vec4{2, -2, -1, 1})
	if !within(corner.X(), 1, 1e-6) || !within(corner.Y(), -1, 1e-6) {
		t.Fatalf("corner maps to %v", corner)
	}
}
