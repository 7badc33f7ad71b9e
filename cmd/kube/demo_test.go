package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/scene"
)

func newTestScene() *scene.Scene {
	return scene.New(scene.NewProjection(mgl32.DegToRad(60), 0.1, 100, 800, 600))
}

func TestLoadSceneFallsBackToDefaultCube(t *testing.T) {
	sc := newTestScene()
	models, err := loadScene(sc, filepath.Join(t.TempDir(), "missing.lua"))
	if err != nil {
		t.Fatalf("loadScene: %v", err)
	}
	if len(models) != 1 || models[0].ID != "cube" {
		t.Fatalf("models = %+v, want the cube", models)
	}
	if n := len(sc.Entities("cube")); n != 1 {
		t.Errorf("%d cube entities, want 1", n)
	}
	if n := len(sc.Lights()); n != 1 || !sc.Lights()[0].Directional() {
		t.Errorf("lights = %+v, want one directional light", sc.Lights())
	}
}

func TestLoadSceneUnknownModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.lua")
	writeFile(t, path, `entity("s", "sphere", 0, 0, 0)`)
	if _, err := loadScene(newTestScene(), path); err == nil {
		t.Fatal("expected error for a model without built-in data")
	}
}

func TestDemoUpdateSpinsCubesOnly(t *testing.T) {
	sc := newTestScene()
	cube := scene.NewEntity("cube", "cube", mgl32.Vec3{})
	floor := scene.NewEntity("floor", "cube", mgl32.Vec3{0, -1, 0})
	sc.AddEntity(cube)
	sc.AddEntity(floor)

	d := &demo{}
	for range 90 {
		d.update(sc)
	}
	want := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	if got := cube.Rotation(); !quatNear(got, want, 1e-4) {
		t.Errorf("cube rotation = %v, want %v", cube.Rotation(), want)
	}
	if floor.Rotation() != mgl32.QuatIdent() {
		t.Errorf("floor rotated: %v", floor.Rotation())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// quatNear compares with an absolute tolerance, unlike Quat.ApproxEqualThreshold
// which squares it for zero components.
func quatNear(a, b mgl32.Quat, eps float32) bool {
	for _, d := range []float32{a.W - b.W, a.V[0] - b.V[0], a.V[1] - b.V[1], a.V[2] - b.V[2]} {
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}
