package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/glfw/v3.3/glfw"

	"github.com/hellhand/kube/internal/assets"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/window"
)

const (
	// movementSpeed is in world units per millisecond.
	movementSpeed = 0.005
	// mouseSensitivity is in degrees per pixel.
	mouseSensitivity = 0.1
	// spinDegrees is how far the demo cubes turn per update.
	spinDegrees = 1.0
)

// defaultScene is used when no scene script is found.
const defaultScene = `
camera(0, 0, 2)
entity("cube", "cube", 0, 0, -2)
directional_light(-1, 1, 0.5, 1, 1, 1, 1)
`

// builtinModel returns the model data for a model ID a scene may reference.
func builtinModel(id string) (assets.ModelData, error) {
	switch id {
	case "cube":
		return assets.Cube(id), nil
	default:
		return assets.ModelData{}, fmt.Errorf("unknown model %q", id)
	}
}

type demo struct {
	angle float32
}

var movementKeys = []struct {
	key  glfw.Key
	move func(*scene.Camera, float32)
}{
	{glfw.KeyW, (*scene.Camera).MoveForward},
	{glfw.KeyS, (*scene.Camera).MoveBackwards},
	{glfw.KeyA, (*scene.Camera).MoveLeft},
	{glfw.KeyD, (*scene.Camera).MoveRight},
	{glfw.KeySpace, (*scene.Camera).MoveUp},
	{glfw.KeyLeftShift, (*scene.Camera).MoveDown},
}

// input moves the camera with WASD, space and left shift, and turns it while
// the right mouse button is held.
func (d *demo) input(win *window.Window, sc *scene.Scene, elapsed time.Duration) {
	cam := sc.Camera()
	inc := float32(elapsed.Milliseconds()) * movementSpeed
	for _, k := range movementKeys {
		if win.IsKeyPressed(k.key) {
			k.move(cam, inc)
		}
	}

	mouse := win.MouseInput()
	if mouse.RightButtonPressed() {
		disp := mouse.Displacement()
		cam.AddRotation(mgl32.DegToRad(disp.X()*mouseSensitivity), mgl32.DegToRad(disp.Y()*mouseSensitivity))
	}
}

// update spins the cubes whose entity ID starts with "cube" around the y axis.
func (d *demo) update(sc *scene.Scene) {
	d.angle += spinDegrees
	if d.angle >= 360 {
		d.angle -= 360
	}
	rot := mgl32.QuatRotate(mgl32.DegToRad(d.angle), mgl32.Vec3{0, 1, 0})
	for _, e := range sc.Entities("cube") {
		if strings.HasPrefix(e.ID, "cube") {
			e.SetRotation(rot)
		}
	}
}
