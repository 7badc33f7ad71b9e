// Package script builds a scene from a Lua file.
//
// A script calls these globals:
//
//	entity(id, model, x, y, z [, scale])
//	rotate(id, degrees, ax, ay, az)
//	point_light(x, y, z, r, g, b [, intensity])
//	directional_light(x, y, z, r, g, b [, intensity])
//	ambient(r, g, b [, a])
//	camera(x, y, z [, pitch, yaw])
//
// The first directional light also casts the cascaded shadows.
package script

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"

	"github.com/hellhand/kube/internal/scene"
)

// builder collects what the script declares and applies it in one go.
type builder struct {
	scene    *scene.Scene
	entities map[string]*scene.Entity
	lights   []scene.Light
	sun      *mgl32.Vec3
	models   []string

	// Staged until the whole script ran and the lights were accepted.
	order   []*scene.Entity
	ambient *mgl32.Vec4
	camera  *cameraPose
}

type cameraPose struct {
	position   mgl32.Vec3
	pitch, yaw float32
}

// Result lists the model IDs the script referenced, in first use order.
type Result struct {
	Models []string
}

// RunFile executes the script at path against sc.
func RunFile(sc *scene.Scene, path string) (Result, error) {
	return run(sc, func(L *lua.LState) error { return L.DoFile(path) }, path)
}

// Run executes src against sc.
func Run(sc *scene.Scene, src string) (Result, error) {
	return run(sc, func(L *lua.LState) error { return L.DoString(src) }, "<string>")
}

func run(sc *scene.Scene, exec func(*lua.LState) error, name string) (Result, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenMath(L)

	b := &builder{scene: sc, entities: make(map[string]*scene.Entity)}
	b.register(L)
	if err := exec(L); err != nil {
		return Result{}, fmt.Errorf("scene script %s: %w", name, err)
	}
	if err := b.apply(); err != nil {
		return Result{}, fmt.Errorf("scene script %s: %w", name, err)
	}
	return Result{Models: b.models}, nil
}

func (b *builder) register(L *lua.LState) {
	for name, fn := range map[string]lua.LGFunction{
		"entity":            b.entity,
		"rotate":            b.rotate,
		"point_light":       b.pointLight,
		"directional_light": b.directionalLight,
		"ambient":           b.setAmbient,
		"camera":            b.setCamera,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func checkFloat(L *lua.LState, n int) float32 {
	return float32(L.CheckNumber(n))
}

func optFloat(L *lua.LState, n int, def float32) float32 {
	return float32(L.OptNumber(n, lua.LNumber(def)))
}

func checkVec3(L *lua.LState, n int) mgl32.Vec3 {
	return mgl32.Vec3{checkFloat(L, n), checkFloat(L, n+1), checkFloat(L, n+2)}
}

func (b *builder) entity(L *lua.LState) int {
	id := L.CheckString(1)
	model := L.CheckString(2)
	if _, ok := b.entities[id]; ok {
		L.ArgError(1, fmt.Sprintf("duplicate entity %q", id))
		return 0
	}
	e := scene.NewEntity(id, model, checkVec3(L, 3))
	e.SetScale(optFloat(L, 6, 1))
	b.entities[id] = e
	b.order = append(b.order, e)
	if !slices.Contains(b.models, model) {
		b.models = append(b.models, model)
	}
	return 0
}

func (b *builder) rotate(L *lua.LState) int {
	id := L.CheckString(1)
	e, ok := b.entities[id]
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown entity %q", id))
		return 0
	}
	angle := mgl32.DegToRad(checkFloat(L, 2))
	axis := checkVec3(L, 3)
	if axis.Len() == 0 {
		L.ArgError(3, "zero rotation axis")
		return 0
	}
	e.SetRotation(mgl32.QuatRotate(angle, axis.Normalize()))
	return 0
}

func (b *builder) pointLight(L *lua.LState) int {
	b.lights = append(b.lights, scene.NewPointLight(checkVec3(L, 1), checkVec3(L, 4), optFloat(L, 7, 1)))
	return 0
}

func (b *builder) directionalLight(L *lua.LState) int {
	pos := checkVec3(L, 1)
	b.lights = append(b.lights, scene.NewDirectionalLight(pos, checkVec3(L, 4), optFloat(L, 7, 1)))
	if b.sun == nil {
		b.sun = &pos
	}
	return 0
}

func (b *builder) setAmbient(L *lua.LState) int {
	c := mgl32.Vec4{checkFloat(L, 1), checkFloat(L, 2), checkFloat(L, 3), optFloat(L, 4, 1)}
	b.ambient = &c
	return 0
}

func (b *builder) setCamera(L *lua.LState) int {
	b.camera = &cameraPose{
		position: checkVec3(L, 1),
		pitch:    mgl32.DegToRad(optFloat(L, 4, 0)),
		yaw:      mgl32.DegToRad(optFloat(L, 5, 0)),
	}
	return 0
}

// apply changes the scene only once the lights are accepted, so a rejected
// script leaves it untouched.
func (b *builder) apply() error {
	if len(b.lights) > 0 {
		if err := b.scene.SetLights(b.lights); err != nil {
			return err
		}
	}
	if b.sun != nil {
		b.scene.SetDirectionalLight(*b.sun)
	}
	for _, e := range b.order {
		b.scene.AddEntity(e)
	}
	if b.ambient != nil {
		b.scene.SetAmbientLight(*b.ambient)
	}
	if b.camera != nil {
		cam := b.scene.Camera()
		cam.SetPosition(b.camera.position)
		cam.SetRotation(b.camera.pitch, b.camera.yaw)
	}
	return nil
}
