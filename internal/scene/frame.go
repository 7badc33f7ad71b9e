package scene

import "github.com/go-gl/mathgl/mgl32"

// FrameView is an immutable copy of everything the passes need for a frame.
type FrameView struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Near       float32
	Far        float32

	AmbientLight     mgl32.Vec4
	Lights           []Light
	DirectionalLight mgl32.Vec3

	LightChanged bool
	CameraMoved  bool

	matrices map[string][]mgl32.Mat4
}

// ModelMatrices returns the model matrices of the entities bound to modelID,
// in the order the entities were added.
func (f FrameView) ModelMatrices(modelID string) []mgl32.Mat4 {
	return f.matrices[modelID]
}
