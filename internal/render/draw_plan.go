package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/scene"
)

// DrawCommand draws one mesh once per entity matrix.
type DrawCommand struct {
	ModelID        string
	Material       *Material
	MaterialOffset uint32
	Mesh           *Mesh
	Matrices       []mgl32.Mat4
}

type DrawPlan []DrawCommand

// BuildDrawPlan walks models in load order. Models without entities and
// materials without meshes produce no commands, but never shift the offsets
// of other materials.
func BuildDrawPlan(models []*Model, frame scene.FrameView, materialStride uint64) DrawPlan {
	var plan DrawPlan
	for _, model := range models {
		matrices := frame.ModelMatrices(model.ID)
		if len(matrices) == 0 {
			continue
		}
		for _, mat := range model.Materials {
			offset := materialOffset(mat.ID, materialStride)
			for _, mesh := range mat.Meshes {
				plan = append(plan, DrawCommand{
					ModelID:        model.ID,
					Material:       mat,
					MaterialOffset: offset,
					Mesh:           mesh,
					Matrices:       matrices,
				})
			}
		}
	}
	return plan
}

// DrawCount is the number of indexed draws the plan records.
func (p DrawPlan) DrawCount() int {
	n := 0
	for _, cmd := range p {
		n += len(cmd.Matrices)
	}
	return n
}
