// Package scene holds the CPU side of what gets rendered: entities grouped by
// model, the camera, the projection and the lights.
package scene

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is mutated by application logic between frames. Render passes never
// read it directly; they get a FrameView from NextFrame.
type Scene struct {
	// entities is an arena; removed entities leave a nil slot.
	entities   []*Entity
	byModel    map[string][]int
	modelOrder []string

	camera     *Camera
	projection *Projection

	ambientLight     mgl32.Vec4
	lights           []Light
	directionalLight mgl32.Vec3
	lightChanged     bool
}

func New(projection *Projection) *Scene {
	return &Scene{
		byModel:          make(map[string][]int),
		camera:           NewCamera(),
		projection:       projection,
		ambientLight:     DefaultAmbientLight,
		directionalLight: mgl32.Vec3{0, 1, 0},
		lightChanged:     true,
	}
}

func (s *Scene) Camera() *Camera         { return s.camera }
func (s *Scene) Projection() *Projection { return s.projection }

func (s *Scene) Resize(width, height int) { s.projection.Resize(width, height) }

// AddEntity appends e to its model's draw list.
func (s *Scene) AddEntity(e *Entity) {
	if _, ok := s.byModel[e.ModelID]; !ok {
		s.modelOrder = append(s.modelOrder, e.ModelID)
	}
	s.entities = append(s.entities, e)
	s.byModel[e.ModelID] = append(s.byModel[e.ModelID], len(s.entities)-1)
}

// RemoveEntity removes the entity with e's id from e's model. It reports
// whether anything was removed.
func (s *Scene) RemoveEntity(e *Entity) bool {
	idx := s.byModel[e.ModelID]
	for i, slot := range idx {
		if s.entities[slot] != nil && s.entities[slot].ID == e.ID {
			s.entities[slot] = nil
			s.byModel[e.ModelID] = slices.Delete(idx, i, i+1)
			return true
		}
	}
	return false
}

func (s *Scene) RemoveAllEntities() {
	s.entities = nil
	s.byModel = make(map[string][]int)
	s.modelOrder = nil
}

// Entities returns the entities of modelID in insertion order.
func (s *Scene) Entities(modelID string) []*Entity {
	idx := s.byModel[modelID]
	out := make([]*Entity, 0, len(idx))
	for _, slot := range idx {
		out = append(out, s.entities[slot])
	}
	return out
}

func (s *Scene) AmbientLight() mgl32.Vec4 { return s.ambientLight }

func (s *Scene) SetAmbientLight(c mgl32.Vec4) {
	s.ambientLight = c
	s.lightChanged = true
}

// Lights returns a copy of the current lights.
func (s *Scene) Lights() []Light { return slices.Clone(s.lights) }

// SetLights replaces all lights. More than MaxLights is rejected and the
// previous lights are kept.
func (s *Scene) SetLights(lights []Light) error {
	if len(lights) > MaxLights {
		return fmt.Errorf("set %d lights, max %d: %w", len(lights), MaxLights, ErrTooManyLights)
	}
	s.lights = slices.Clone(lights)
	s.lightChanged = true
	return nil
}

// DirectionalLight is the position of the shadow-casting light; it shines
// towards the origin.
func (s *Scene) DirectionalLight() mgl32.Vec3 { return s.directionalLight }

func (s *Scene) SetDirectionalLight(position mgl32.Vec3) {
	s.directionalLight = position
	s.lightChanged = true
}

func (s *Scene) LightChanged() bool { return s.lightChanged }

// NextFrame snapshots the scene for one frame and clears the light and
// camera dirty flags.
func (s *Scene) NextFrame() FrameView {
	fv := FrameView{
		View:             s.camera.View(),
		Projection:       s.projection.Matrix(),
		Near:             s.projection.Near(),
		Far:              s.projection.Far(),
		AmbientLight:     s.ambientLight,
		Lights:           slices.Clone(s.lights),
		DirectionalLight: s.directionalLight,
		LightChanged:     s.lightChanged,
		CameraMoved:      s.camera.HasMoved(),
		matrices:         make(map[string][]mgl32.Mat4, len(s.byModel)),
	}
	for _, modelID := range s.modelOrder {
		idx := s.byModel[modelID]
		if len(idx) == 0 {
			continue
		}
		m := make([]mgl32.Mat4, 0, len(idx))
		for _, slot := range idx {
			m = append(m, s.entities[slot].ModelMatrix())
		}
		fv.matrices[modelID] = m
	}
	s.lightChanged = false
	s.camera.ResetMoved()
	return fv
}
