package scene

import "github.com/go-gl/mathgl/mgl32"

// Entity places an instance of a model in the world. The model is referenced
// by id only; the renderer owns the GPU model.
type Entity struct {
	ID      string
	ModelID string

	position    mgl32.Vec3
	rotation    mgl32.Quat
	scale       float32
	modelMatrix mgl32.Mat4
}

func NewEntity(id, modelID string, position mgl32.Vec3) *Entity {
	e := &Entity{
		ID:       id,
		ModelID:  modelID,
		position: position,
		rotation: mgl32.QuatIdent(),
		scale:    1,
	}
	e.updateModelMatrix()
	return e
}

func (e *Entity) Position() mgl32.Vec3 { return e.position }
func (e *Entity) Rotation() mgl32.Quat { return e.rotation }
func (e *Entity) Scale() float32       { return e.scale }

// ModelMatrix is translation * rotation * scale of the last values set.
func (e *Entity) ModelMatrix() mgl32.Mat4 { return e.modelMatrix }

func (e *Entity) SetPosition(p mgl32.Vec3) {
	e.position = p
	e.updateModelMatrix()
}

func (e *Entity) SetRotation(q mgl32.Quat) {
	e.rotation = q.Normalize()
	e.updateModelMatrix()
}

func (e *Entity) ResetRotation() {
	e.rotation = mgl32.QuatIdent()
	e.updateModelMatrix()
}

func (e *Entity) SetScale(s float32) {
	e.scale = s
	e.updateModelMatrix()
}

func (e *Entity) updateModelMatrix() {
	e.modelMatrix = mgl32.Translate3D(e.position.X(), e.position.Y(), e.position.Z()).
		Mul4(e.rotation.Mat4()).
		Mul4(mgl32.Scale3D(e.scale, e.scale, e.scale))
}
