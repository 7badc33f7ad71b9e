package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/shadow"
)

func TestCascadeTrackerRecomputesOnlyWhenNeeded(t *testing.T) {
	sc := newTestScene()
	sc.SetDirectionalLight(mgl32.Vec3{-1, 2, 0.5})
	tracker := newCascadeTracker()

	steps := []struct {
		name   string
		mutate func()
		want   bool
	}{
		{"first frame", func() {}, true},
		{"nothing changed", func() {}, false},
		{"camera moved", func() { sc.Camera().MoveForward(1) }, true},
		{"still", func() {}, false},
		{"light changed", func() { sc.SetDirectionalLight(mgl32.Vec3{1, 1, 0}) }, true},
		{"resized", func() { tracker.invalidate() }, true},
		{"settled", func() {}, false},
	}
	for _, step := range steps {
		step.mutate()
		updated, err := tracker.update(sc.NextFrame())
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if updated != step.want {
			t.Errorf("%s: updated = %v, want %v", step.name, updated, step.want)
		}
		if len(tracker.cascades) != shadow.CascadeCount {
			t.Errorf("%s: %d cascades", step.name, len(tracker.cascades))
		}
	}
}

func TestCascadeTrackerMatchesCalculator(t *testing.T) {
	sc := newTestScene()
	frame := sc.NextFrame()
	tracker := newCascadeTracker()
	if _, err := tracker.update(frame); err != nil {
		t.Fatalf("update: %v", err)
	}
	want, err := shadow.ComputeCascades(shadow.Params{
		View:          frame.View,
		Projection:    frame.Projection,
		Near:          frame.Near,
		Far:           frame.Far,
		LightPosition: frame.DirectionalLight,
		Count:         shadow.CascadeCount,
		Lambda:        shadow.DefaultSplitLambda,
	})
	if err != nil {
		t.Fatalf("ComputeCascades: %v", err)
	}
	for i := range want {
		if tracker.cascades[i] != want[i] {
			t.Errorf("cascade %d = %+v, want %+v", i, tracker.cascades[i], want[i])
		}
	}
}
